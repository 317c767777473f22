package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single FTP session.
type LogContext struct {
	SessionID string    // opaque session identifier assigned at accept time
	Command   string    // last FTP verb dispatched (USER, RETR, STOR,...)
	Section   string    // section name the command is operating against, if any
	ClientIP  string    // control-channel peer address (without port)
	Username  string    // authenticated username, empty before login
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		SessionID: lc.SessionID,
		Command:   lc.Command,
		Section:   lc.Section,
		ClientIP:  lc.ClientIP,
		Username:  lc.Username,
		StartTime: lc.StartTime,
	}
}

// WithCommand returns a copy with the current command verb set
func (lc *LogContext) WithCommand(command string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Command = command
	}
	return clone
}

// WithSection returns a copy with the section set
func (lc *LogContext) WithSection(section string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Section = section
	}
	return clone
}

// WithUser returns a copy with the authenticated username set
func (lc *LogContext) WithUser(username string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Username = username
	}
	return clone
}

// WithSessionID returns a copy with the session id set
func (lc *LogContext) WithSessionID(id string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = id
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
