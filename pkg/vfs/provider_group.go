package vfs

import (
	"context"
	"strings"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/registry"
)

// GroupProvider serves /GROUPS/<group>, a per-group virtual listing of
// every release attributed to that group across all sections.
type GroupProvider struct {
	Releases *registry.ReleaseRegistry
	Groups   identity.Store
}

func (p *GroupProvider) Name() string { return "group" }

const groupRoot = "GROUPS"

func (p *GroupProvider) CanHandle(path string) bool {
	parts := SplitComponents(path)
	return len(parts) > 0 && strings.EqualFold(parts[0], groupRoot)
}

func (p *GroupProvider) Resolve(ctx context.Context, path string, user *identity.User) Result {
	parts := SplitComponents(path)
	switch len(parts) {
	case 1:
		return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
	case 2:
		name := parts[1]
		if _, err := p.Groups.GetGroup(name); err != nil {
			return NotFound("no such group")
		}
		return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
	case 3:
		name, release := parts[1], parts[2]
		for _, rel := range p.Releases.GroupReleases(name) {
			if strings.EqualFold(rel.Name, release) {
				return Ok(releaseNode(path, rel))
			}
		}
		return NotFound("no such release for this group")
	default:
		return NotFound("no such group path")
	}
}

func (p *GroupProvider) Enumerate(ctx context.Context, path string, user *identity.User) []Node {
	parts := SplitComponents(path)
	switch len(parts) {
	case 1:
		groups, err := p.Groups.ListGroups()
		if err != nil {
			return nil
		}
		nodes := make([]Node, 0, len(groups))
		for _, g := range groups {
			childPath, err := Join(path, g.Name)
			if err != nil {
				continue
			}
			nodes = append(nodes, Node{VirtualPath: childPath, Kind: VirtualDirectory})
		}
		return nodes
	case 2:
		name := parts[1]
		releases := p.Releases.GroupReleases(name)
		nodes := make([]Node, 0, len(releases))
		for _, rel := range releases {
			childPath, err := Join(path, rel.Name)
			if err != nil {
				continue
			}
			nodes = append(nodes, *releaseNode(childPath, rel))
		}
		return nodes
	default:
		return nil
	}
}
