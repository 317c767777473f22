package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

func TestPhysicalProviderResolveAndEnumerate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	table := NewMountTable([]Mount{{VirtualRoot: "/apps", PhysicalRoot: dir}})
	provider := &PhysicalProvider{Mounts: table}
	resolver := NewResolver([]Provider{provider}, 0)

	result := resolver.Resolve(context.Background(), "/apps/readme.txt", nil)
	if !result.IsOk() {
		t.Fatalf("expected Ok, got err=%v", result.Err)
	}
	if result.Node.Kind != PhysicalFile {
		t.Fatalf("expected PhysicalFile, got %v", result.Node.Kind)
	}

	nodes := resolver.Enumerate(context.Background(), "/apps", nil)
	if len(nodes) != 1 || nodes[0].Name() != "readme.txt" {
		t.Fatalf("Enumerate = %+v", nodes)
	}
}

func TestPhysicalProviderNotFound(t *testing.T) {
	table := NewMountTable([]Mount{{VirtualRoot: "/apps", PhysicalRoot: t.TempDir()}})
	resolver := NewResolver([]Provider{&PhysicalProvider{Mounts: table}}, 0)

	result := resolver.Resolve(context.Background(), "/apps/missing.txt", nil)
	if result.IsOk() {
		t.Fatal("expected NotFound for a missing file")
	}
}

func TestSectionShortcutFallsBackWhenPhysicalMisses(t *testing.T) {
	store := identity.NewMemoryStore()
	_ = store.PutSection(&identity.Section{Name: "APPS", VirtualRoot: "/mounts/apps-real"})

	physical := &PhysicalProvider{Mounts: NewMountTable(nil)}
	shortcut := &SectionShortcutProvider{Sections: store, Next: physical}
	resolver := NewResolver([]Provider{shortcut}, 0)

	result := resolver.Resolve(context.Background(), "/APPS", nil)
	if !result.IsOk() {
		t.Fatalf("expected shortcut to resolve, got err=%v", result.Err)
	}
	if result.Node.VirtualPath != "/mounts/apps-real" {
		t.Fatalf("expected redirect to section virtual root, got %q", result.Node.VirtualPath)
	}
}

func TestResolveCacheServesWithinTTL(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	table := NewMountTable([]Mount{{VirtualRoot: "/apps", PhysicalRoot: dir}})
	resolver := NewResolver([]Provider{&PhysicalProvider{Mounts: table}}, DefaultCacheTTL)

	first := resolver.Resolve(context.Background(), "/apps/f.txt", nil)
	if !first.IsOk() {
		t.Fatalf("expected Ok, got %v", first.Err)
	}

	if err := os.Remove(filepath.Join(dir, "f.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	cached := resolver.Resolve(context.Background(), "/apps/f.txt", nil)
	if !cached.IsOk() {
		t.Fatal("expected the cached Ok result to still be served despite the file having been removed")
	}
}
