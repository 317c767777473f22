package vfs

import (
	"context"
	"fmt"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/ftperr"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// Resolver composes an ordered provider chain with a best-effort TTL
// resolve cache.
type Resolver struct {
	providers []Provider
	cache     *resolveCache
	now       func() time.Time
}

// NewResolver builds a Resolver over providers, evaluated in the given
// order. cacheTTL <= 0 uses DefaultCacheTTL.
func NewResolver(providers []Provider, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		providers: providers,
		cache:     newResolveCache(cacheTTL),
		now:       time.Now,
	}
}

// Resolve normalizes path and runs it through the provider chain,
// consulting the resolve cache first. The cache key incorporates the
// username since per-user mounts and pre-namespace visibility depend on
// identity.
func (r *Resolver) Resolve(ctx context.Context, rawPath string, user *identity.User) Result {
	path, err := Normalize(rawPath)
	if err != nil {
		return NotFound(err.Error())
	}

	username := ""
	if user != nil {
		username = user.Username
	}
	cacheKey := username + "\x00" + path

	now := r.now()
	if cached, ok := r.cache.get(cacheKey, now); ok {
		return cached
	}

	result := r.resolveUncached(ctx, path, user)
	r.cache.put(cacheKey, result, now)
	return result
}

// resolveUncached walks the chain in order. A provider that claims the
// path (CanHandle true) and resolves it, whether to Ok or Denied, wins
// outright. A claiming provider that reports NotFound yields to the next
// provider instead of stopping the chain — this is what lets the section
// shortcut provider (5) catch bare `/NAME` paths the physical provider
// (4) claims but can't match.
func (r *Resolver) resolveUncached(ctx context.Context, path string, user *identity.User) Result {
	for _, p := range r.providers {
		if !p.CanHandle(path) {
			continue
		}
		result := p.Resolve(ctx, path, user)
		if result.IsOk() {
			return result
		}
		if result.Err != nil && result.Err.Kind == ftperr.VFS {
			// "Not found" from a claiming provider yields to the rest of
			// the chain rather than stopping it.
			continue
		}
		return result
	}
	return NotFound("no provider could resolve " + path)
}

// Enumerate lists path's children via whichever provider claims it.
func (r *Resolver) Enumerate(ctx context.Context, rawPath string, user *identity.User) []Node {
	path, err := Normalize(rawPath)
	if err != nil {
		return nil
	}
	for _, p := range r.providers {
		if p.CanHandle(path) {
			return p.Enumerate(ctx, path, user)
		}
	}
	return nil
}

// mutableProviderFor returns the provider claiming path, asserted to
// MutableProvider. The same claim rule as resolveUncached applies:
// whichever provider's CanHandle(path) is true first wins, whether or
// not it turns out to support mutation.
func (r *Resolver) mutableProviderFor(path string) (MutableProvider, bool) {
	for _, p := range r.providers {
		if !p.CanHandle(path) {
			continue
		}
		mp, ok := p.(MutableProvider)
		return mp, ok
	}
	return nil, false
}

// Mkdir creates path as a directory via whichever provider claims it.
func (r *Resolver) Mkdir(ctx context.Context, rawPath string, user *identity.User) error {
	path, err := Normalize(rawPath)
	if err != nil {
		return err
	}
	mp, ok := r.mutableProviderFor(path)
	if !ok {
		return fmt.Errorf("vfs: %s does not support directory creation", path)
	}
	if err := mp.Mkdir(ctx, path, user); err != nil {
		return err
	}
	r.InvalidateCache(path)
	return nil
}

// Remove deletes the file or empty directory at path via whichever
// provider claims it.
func (r *Resolver) Remove(ctx context.Context, rawPath string, user *identity.User) error {
	path, err := Normalize(rawPath)
	if err != nil {
		return err
	}
	mp, ok := r.mutableProviderFor(path)
	if !ok {
		return fmt.Errorf("vfs: %s does not support removal", path)
	}
	if err := mp.Remove(ctx, path, user); err != nil {
		return err
	}
	r.InvalidateCache(path)
	return nil
}

// Rename moves oldPath to newPath. Both must be claimed by the same
// mutable provider.
func (r *Resolver) Rename(ctx context.Context, rawOld, rawNew string, user *identity.User) error {
	oldPath, err := Normalize(rawOld)
	if err != nil {
		return err
	}
	newPath, err := Normalize(rawNew)
	if err != nil {
		return err
	}
	mp, ok := r.mutableProviderFor(oldPath)
	if !ok {
		return fmt.Errorf("vfs: %s does not support rename", oldPath)
	}
	if newMp, ok := r.mutableProviderFor(newPath); !ok || newMp != mp {
		return fmt.Errorf("vfs: %s and %s are not on the same mutable provider", oldPath, newPath)
	}
	if err := mp.Rename(ctx, oldPath, newPath, user); err != nil {
		return err
	}
	r.InvalidateCache(oldPath)
	r.InvalidateCache(newPath)
	return nil
}

// InvalidateCache drops the cached resolution for path across all users.
// Called after mutations (mkdir, rmdir, rename, nuke) that would
// otherwise leave a stale Ok/NotFound result cached for up to the
// resolver's cache TTL.
func (r *Resolver) InvalidateCache(path string) {
	normalized, err := Normalize(path)
	if err != nil {
		return
	}
	// The cache key is scoped per-user; a targeted invalidation would
	// need the full user list, which the resolver doesn't own, so a
	// mutation instead scans every key and drops each one that ends in
	// the normalized path, whatever its user prefix. Other entries stay
	// cached.
	r.cache.mu.Lock()
	for key := range r.cache.m {
		if len(key) > len(normalized) && key[len(key)-len(normalized):] == normalized {
			delete(r.cache.m, key)
		}
	}
	r.cache.mu.Unlock()
}
