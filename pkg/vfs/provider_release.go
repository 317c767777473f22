package vfs

import (
	"context"
	"strings"

	"github.com/m4mm0n/amFTPd-sub003/pkg/dupe"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/registry"
)

// ReleaseProvider serves the synthetic release namespace: section roots,
// /TODAY, /0DAY, /TODAY-<section>, /NUKED, /INCOMPLETE, /ARCHIVE.
// Every node it produces is virtual: listing a release here never
// touches the underlying physical files directly, it only reflects what
// the dupe store has recorded about it.
type ReleaseProvider struct {
	Releases *registry.ReleaseRegistry
	Sections identity.Store
}

func (p *ReleaseProvider) Name() string { return "release" }

func (p *ReleaseProvider) CanHandle(path string) bool {
	root := strings.ToUpper(SplitComponents(path)[0])
	switch {
	case root == "TODAY", root == "0DAY", root == "NUKED", root == "INCOMPLETE", root == "ARCHIVE":
		return true
	case strings.HasPrefix(root, "TODAY-"):
		return true
	}
	if _, err := p.Sections.GetSection(root); err == nil {
		return true
	}
	return false
}

func (p *ReleaseProvider) Resolve(ctx context.Context, path string, user *identity.User) Result {
	parts := SplitComponents(path)
	if len(parts) == 0 {
		return NotFound("empty release path")
	}
	root := strings.ToUpper(parts[0])

	if len(parts) == 1 {
		return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
	}

	releases := p.list(root)
	releaseName := parts[len(parts)-1]
	for _, rel := range releases {
		if strings.EqualFold(rel.Name, releaseName) {
			return Ok(releaseNode(path, rel))
		}
	}
	return NotFound("no such release")
}

func (p *ReleaseProvider) Enumerate(ctx context.Context, path string, user *identity.User) []Node {
	parts := SplitComponents(path)
	if len(parts) == 0 {
		return nil
	}
	root := strings.ToUpper(parts[0])
	releases := p.list(root)

	nodes := make([]Node, 0, len(releases))
	for _, rel := range releases {
		childPath, err := Join(path, rel.Name)
		if err != nil {
			continue
		}
		nodes = append(nodes, *releaseNode(childPath, rel))
	}
	return nodes
}

func (p *ReleaseProvider) list(root string) []*dupe.Release {
	switch {
	case root == "TODAY":
		return p.Releases.Today()
	case root == "0DAY":
		return p.Releases.ZeroDay(p.Sections)
	case root == "NUKED":
		return p.Releases.Nuked()
	case root == "INCOMPLETE":
		return p.Releases.Incomplete()
	case root == "ARCHIVE":
		return p.Releases.Archive()
	case strings.HasPrefix(root, "TODAY-"):
		return p.Releases.TodaySection(strings.TrimPrefix(root, "TODAY-"))
	default:
		return p.Releases.BySection(root)
	}
}

func releaseNode(path string, rel *dupe.Release) *Node {
	return &Node{
		VirtualPath: path,
		Kind:        VirtualDirectory,
		Size:        rel.TotalBytes,
		ModTime:     rel.LastUpdated,
	}
}
