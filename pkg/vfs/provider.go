package vfs

import (
	"context"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// Provider is one link in the resolver's provider chain.
// The chain evaluates providers in order; the first whose CanHandle
// returns true and whose Resolve returns Ok or a non-VFS error (such as
// Denied) wins, while a VFS-kind error such as NotFound falls through
// to the next provider.
type Provider interface {
	// Name identifies the provider for logging/diagnostics.
	Name() string
	// CanHandle reports whether this provider claims responsibility for path.
	CanHandle(path string) bool
	// Resolve resolves path to a Result for the given user (nil for an
	// unauthenticated caller, used only during the listing of public
	// anonymous-accessible trees, if configured).
	Resolve(ctx context.Context, path string, user *identity.User) Result
	// Enumerate lists the immediate children of path. It is best-effort:
	// on any I/O error it returns an empty slice, never an error.
	Enumerate(ctx context.Context, path string, user *identity.User) []Node
}

// MutableProvider is implemented by providers backed by storage that
// supports directory creation, removal, and rename. Synthetic views
// (release, pre, and group registries) claim paths but do not
// implement it; only PhysicalProvider mutates real directories.
type MutableProvider interface {
	Mkdir(ctx context.Context, path string, user *identity.User) error
	Remove(ctx context.Context, path string, user *identity.User) error
	Rename(ctx context.Context, oldPath, newPath string, user *identity.User) error
}
