package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the daemon.
// Use these keys consistently across all log statements so downstream
// log aggregation and querying stays uniform.
const (
	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID  = "session_id"  // opaque per-connection session identifier
	KeyClientIP   = "client_ip"   // control-channel peer address
	KeyClientPort = "client_port" // control-channel peer port
	KeyUsername   = "username"   // authenticated username, empty pre-login

	// ========================================================================
	// Protocol & Command
	// ========================================================================
	KeyCommand  = "command"  // FTP verb (USER, RETR, STOR,...)
	KeyArgument = "argument" // command argument as received
	KeyReply    = "reply"    // reply code sent on the control channel

	// ========================================================================
	// VFS / Path
	// ========================================================================
	KeyPath       = "path"        // normalized virtual path
	KeyOldPath    = "old_path"    // rename source
	KeyNewPath    = "new_path"    // rename destination
	KeySection    = "section"     // section name a command operates against
	KeyMount      = "mount"       // mount name backing a resolved path

	// ========================================================================
	// Transfer / Accounting
	// ========================================================================
	KeyBytes     = "bytes"      // bytes transferred
	KeyOffset    = "offset"     // REST offset applied to a transfer
	KeyDirection = "direction"  // upload, download
	KeyCredits   = "credits"    // KiB credit delta or balance
	KeyRatio     = "ratio"      // effective multiplier applied

	// ========================================================================
	// FXP
	// ========================================================================
	KeyRemoteHost = "remote_host" // FXP remote peer address
	KeyFXP        = "fxp"         // bool: whether the transfer is cross-server

	// ========================================================================
	// Dupe store / release
	// ========================================================================
	KeyRelease = "release" // release name
	KeyGroup   = "group"   // release group

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyReason     = "reason"      // short human reason attached to a denial
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientIP returns a slog.Attr for the control-channel peer address.
func ClientIP(ip string) slog.Attr {
	return slog.String(KeyClientIP, ip)
}

// Username returns a slog.Attr for the authenticated username.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Command returns a slog.Attr for the FTP verb being dispatched.
func Command(verb string) slog.Attr {
	return slog.String(KeyCommand, verb)
}

// Reply returns a slog.Attr for the reply code sent to the client.
func Reply(code int) slog.Attr {
	return slog.Int(KeyReply, code)
}

// Path returns a slog.Attr for a normalized virtual path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Section returns a slog.Attr for a section name.
func Section(name string) slog.Attr {
	return slog.String(KeySection, name)
}

// Bytes returns a slog.Attr for a byte count.
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// Direction returns a slog.Attr for transfer direction.
func Direction(dir string) slog.Attr {
	return slog.String(KeyDirection, dir)
}

// Credits returns a slog.Attr for a KiB credit amount.
func Credits(n int64) slog.Attr {
	return slog.Int64(KeyCredits, n)
}

// RemoteHost returns a slog.Attr for an FXP remote peer address.
func RemoteHost(addr string) slog.Attr {
	return slog.String(KeyRemoteHost, addr)
}

// Release returns a slog.Attr for a release name.
func Release(name string) slog.Attr {
	return slog.String(KeyRelease, name)
}

// DurationMs returns a slog.Attr for an operation duration.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error value's message.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Reason returns a slog.Attr for a short human-readable denial reason.
func Reason(msg string) slog.Attr {
	return slog.String(KeyReason, msg)
}
