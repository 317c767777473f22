package vfs

import "sort"

// Mount maps a virtual-root prefix to a physical root directory.
// User-mounts carry a non-empty Owner and outrank global mounts at the
// same or a shorter prefix length.
type Mount struct {
	VirtualRoot   string
	PhysicalRoot  string
	ReadOnly      bool
	Owner         string // empty for a global mount
	VirtualFiles  []Node // static files attached under VirtualRoot
}

// MountTable resolves a virtual path to its best-matching mount: longest
// prefix wins; user-mounts outrank global mounts.
type MountTable struct {
	mounts []Mount
}

// NewMountTable builds a table from an unordered mount list.
func NewMountTable(mounts []Mount) *MountTable {
	t := &MountTable{mounts: append([]Mount(nil), mounts...)}
	t.sort()
	return t
}

// Add inserts a mount, keeping the table ordered for resolution.
func (t *MountTable) Add(m Mount) {
	t.mounts = append(t.mounts, m)
	t.sort()
}

// sort orders mounts by descending prefix length, then user-mounts
// before global mounts, so the first match in iteration order is always
// the best match.
func (t *MountTable) sort() {
	sort.SliceStable(t.mounts, func(i, j int) bool {
		a, b := t.mounts[i], t.mounts[j]
		if len(a.VirtualRoot) != len(b.VirtualRoot) {
			return len(a.VirtualRoot) > len(b.VirtualRoot)
		}
		aUser, bUser := a.Owner != "", b.Owner != ""
		if aUser != bUser {
			return aUser
		}
		return false
	})
}

// Resolve returns the best-matching mount for path and the path's
// remainder relative to that mount's virtual root, restricted to mounts
// owned by username (or global mounts when username is "").
func (t *MountTable) Resolve(path, username string) (Mount, string, bool) {
	for _, m := range t.mounts {
		if m.Owner != "" && m.Owner != username {
			continue
		}
		if !HasPrefixFold(path, m.VirtualRoot) && !EqualFold(path, m.VirtualRoot) {
			continue
		}
		rel := "/"
		if !EqualFold(path, m.VirtualRoot) {
			rel = path[len(m.VirtualRoot):]
			if rel == "" {
				rel = "/"
			}
		}
		return m, rel, true
	}
	return Mount{}, "", false
}
