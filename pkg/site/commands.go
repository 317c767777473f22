package site

import (
	"context"
	"fmt"
)

// version is reported by SITE VERS. It stays "dev" unless SetVersion is
// called; the amftpd entrypoint does not call it.
var version = "dev"

// SetVersion lets the entrypoint record a build version for SITE VERS.
func SetVersion(v string) {
	version = v
}

// WhoEntry describes one connected session for SITE WHO.
type WhoEntry struct {
	Username string
	Section  string
	Idle     string
}

// WhoLister is an optional Session capability: a session whose owner
// also exposes the full active-session list (normally backed by
// pkg/listener's registry) can serve SITE WHO.
type WhoLister interface {
	ActiveUsers() []WhoEntry
}

// RatioProvider is an optional Session capability exposing the logged
// in user's current ratio standing for SITE RATIO.
type RatioProvider interface {
	UploadedBytes() int64
	DownloadedBytes() int64
	Ratio() float64
}

func registerBuiltins(r *Registry) {
	r.Register(Command{
		Verb:  "VERS",
		Usage: "SITE VERS - show the server version",
		Handler: func(ctx context.Context, sess Session, args string) Result {
			return Result{Code: 200, Lines: []string{"amFTPd " + version}}
		},
	})

	r.Register(Command{
		Verb:  "WHO",
		Usage: "SITE WHO - list currently connected users",
		Handler: func(ctx context.Context, sess Session, args string) Result {
			lister, ok := sess.(WhoLister)
			if !ok {
				return Result{Code: 502, Lines: []string{"SITE WHO is not available."}}
			}
			users := lister.ActiveUsers()
			lines := make([]string, 0, len(users)+1)
			lines = append(lines, fmt.Sprintf("%d user(s) online:", len(users)))
			for _, u := range users {
				lines = append(lines, fmt.Sprintf("%-16s %-16s idle %s", u.Username, u.Section, u.Idle))
			}
			return Result{Code: 200, Lines: lines}
		},
	})

	r.Register(Command{
		Verb:  "RATIO",
		Usage: "SITE RATIO - show your upload/download ratio",
		Handler: func(ctx context.Context, sess Session, args string) Result {
			rp, ok := sess.(RatioProvider)
			if !ok {
				return Result{Code: 502, Lines: []string{"SITE RATIO is not available."}}
			}
			return Result{Code: 200, Lines: []string{
				fmt.Sprintf("Uploaded: %d bytes, Downloaded: %d bytes, Ratio: %.2f",
					rp.UploadedBytes(), rp.DownloadedBytes(), rp.Ratio()),
			}}
		},
	})
}
