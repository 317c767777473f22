package vfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// PhysicalProvider resolves paths against the mount table's longest
// matching prefix, then stats the corresponding real filesystem entry.
type PhysicalProvider struct {
	Mounts *MountTable
}

func (p *PhysicalProvider) Name() string { return "physical" }

func (p *PhysicalProvider) CanHandle(path string) bool {
	_, _, ok := p.Mounts.Resolve(path, "")
	return ok
}

func (p *PhysicalProvider) username(user *identity.User) string {
	if user == nil {
		return ""
	}
	return user.Username
}

func (p *PhysicalProvider) Resolve(ctx context.Context, path string, user *identity.User) Result {
	mount, rel, ok := p.Mounts.Resolve(path, p.username(user))
	if !ok {
		return NotFound("no mount covers " + path)
	}

	physicalPath := filepath.Join(mount.PhysicalRoot, filepath.FromSlash(rel))
	info, err := os.Stat(physicalPath)
	if err != nil {
		return NotFound("no such file or directory")
	}

	kind := PhysicalFile
	if info.IsDir() {
		kind = PhysicalDirectory
	}
	return Ok(&Node{
		VirtualPath:  path,
		PhysicalPath: physicalPath,
		Kind:         kind,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		ReadOnly:     mount.ReadOnly,
	})
}

func (p *PhysicalProvider) Enumerate(ctx context.Context, path string, user *identity.User) []Node {
	mount, rel, ok := p.Mounts.Resolve(path, p.username(user))
	if !ok {
		return nil
	}
	physicalPath := filepath.Join(mount.PhysicalRoot, filepath.FromSlash(rel))
	entries, err := os.ReadDir(physicalPath)
	if err != nil {
		return nil
	}

	nodes := make([]Node, 0, len(entries)+len(mount.VirtualFiles))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		kind := PhysicalFile
		if e.IsDir() {
			kind = PhysicalDirectory
		}
		childPath, err := Join(path, e.Name())
		if err != nil {
			continue
		}
		nodes = append(nodes, Node{
			VirtualPath:  childPath,
			PhysicalPath: filepath.Join(physicalPath, e.Name()),
			Kind:         kind,
			Size:         info.Size(),
			ModTime:      info.ModTime(),
			ReadOnly:     mount.ReadOnly,
		})
	}
	nodes = append(nodes, mount.VirtualFiles...)
	return nodes
}

// resolveWritable resolves path to a physical path, rejecting mounts
// that don't cover it or that are read-only.
func (p *PhysicalProvider) resolveWritable(path string, user *identity.User) (string, error) {
	mount, rel, ok := p.Mounts.Resolve(path, p.username(user))
	if !ok {
		return "", fmt.Errorf("vfs: no mount covers %s", path)
	}
	if mount.ReadOnly {
		return "", fmt.Errorf("vfs: mount covering %s is read-only", path)
	}
	return filepath.Join(mount.PhysicalRoot, filepath.FromSlash(rel)), nil
}

// Mkdir creates path as a new directory.
func (p *PhysicalProvider) Mkdir(ctx context.Context, path string, user *identity.User) error {
	physicalPath, err := p.resolveWritable(path, user)
	if err != nil {
		return err
	}
	return os.Mkdir(physicalPath, 0o755)
}

// Remove deletes a file or an empty directory at path.
func (p *PhysicalProvider) Remove(ctx context.Context, path string, user *identity.User) error {
	physicalPath, err := p.resolveWritable(path, user)
	if err != nil {
		return err
	}
	return os.Remove(physicalPath)
}

// Rename moves oldPath to newPath. Both must resolve within a writable
// mount; cross-mount renames are rejected by os.Rename if the mounts
// live on different filesystems.
func (p *PhysicalProvider) Rename(ctx context.Context, oldPath, newPath string, user *identity.User) error {
	oldPhysical, err := p.resolveWritable(oldPath, user)
	if err != nil {
		return err
	}
	newPhysical, err := p.resolveWritable(newPath, user)
	if err != nil {
		return err
	}
	return os.Rename(oldPhysical, newPhysical)
}
