package vfs

import (
	"context"
	"strings"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/registry"
)

// PreProvider serves the /PRE, /PRE/<group>, /PRE/<group>/<release>, and
// /PRE/TODAY virtual namespace. Non-siteop
// users may not list another group's pre entries: userCanSeeGroup enforces that via admin/primary/secondary
// group membership.
type PreProvider struct {
	Pre *registry.PreRegistry
}

func (p *PreProvider) Name() string { return "pre" }

func (p *PreProvider) CanHandle(path string) bool {
	parts := SplitComponents(path)
	return len(parts) > 0 && strings.EqualFold(parts[0], "PRE")
}

func (p *PreProvider) userCanSeeGroup(user *identity.User, group string) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if strings.EqualFold(user.PrimaryGroup, group) {
		return true
	}
	for _, g := range user.SecondaryGroups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

func (p *PreProvider) Resolve(ctx context.Context, path string, user *identity.User) Result {
	parts := SplitComponents(path)
	switch len(parts) {
	case 1: // /PRE
		return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
	case 2:
		if strings.EqualFold(parts[1], "TODAY") {
			return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
		}
		group := parts[1]
		if !p.userCanSeeGroup(user, group) {
			return Denied("not authorized to view this group's pre area")
		}
		return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
	case 3:
		group := parts[1]
		if !p.userCanSeeGroup(user, group) {
			return Denied("not authorized to view this group's pre area")
		}
		if _, ok := p.Pre.Get(path); !ok {
			return NotFound("no such pre entry")
		}
		return Ok(&Node{VirtualPath: path, Kind: VirtualDirectory})
	default:
		return NotFound("no such pre path")
	}
}

func (p *PreProvider) Enumerate(ctx context.Context, path string, user *identity.User) []Node {
	parts := SplitComponents(path)
	switch len(parts) {
	case 1: // /PRE -> nothing enumerable without a group; callers list by group explicitly
		return nil
	case 2:
		if strings.EqualFold(parts[1], "TODAY") {
			return preNodes(p.Pre.Today(time.Now()))
		}
		group := parts[1]
		if !p.userCanSeeGroup(user, group) {
			return nil
		}
		return preNodes(p.Pre.ByGroup(group))
	default:
		return nil
	}
}

func preNodes(entries []registry.PreEntry) []Node {
	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, Node{
			VirtualPath: e.VirtualPath,
			Kind:        VirtualDirectory,
			ModTime:     e.Timestamp,
		})
	}
	return nodes
}
