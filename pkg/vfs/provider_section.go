package vfs

import (
	"context"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// SectionShortcutProvider redirects a bare "/NAME" path to the named
// section's configured virtual root when the physical provider doesn't
// match it. It only ever claims single-segment
// paths, so it never shadows deeper physical or virtual paths.
type SectionShortcutProvider struct {
	Sections identity.Store
	Next     Provider // the provider chain's physical link, consulted first
}

func (p *SectionShortcutProvider) Name() string { return "section-shortcut" }

func (p *SectionShortcutProvider) CanHandle(path string) bool {
	return len(SplitComponents(path)) == 1
}

func (p *SectionShortcutProvider) Resolve(ctx context.Context, path string, user *identity.User) Result {
	if p.Next != nil && p.Next.CanHandle(path) {
		if result := p.Next.Resolve(ctx, path, user); result.IsOk() {
			return result
		}
	}

	name := SplitComponents(path)[0]
	section, err := p.Sections.GetSection(name)
	if err != nil {
		return NotFound("no such section or path")
	}
	return Ok(&Node{
		VirtualPath: section.VirtualRoot,
		Kind:        VirtualDirectory,
	})
}

func (p *SectionShortcutProvider) Enumerate(ctx context.Context, path string, user *identity.User) []Node {
	if p.Next != nil && p.Next.CanHandle(path) {
		if nodes := p.Next.Enumerate(ctx, path, user); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}
