package foldedmap

import "testing"

func TestSetGetCaseInsensitive(t *testing.T) {
	m := New[int]()
	m.Set("Alice", 1)

	if v, ok := m.Get("alice"); !ok || v != 1 {
		t.Fatalf("Get(alice) = %v, %v", v, ok)
	}
	if v, ok := m.Get("ALICE"); !ok || v != 1 {
		t.Fatalf("Get(ALICE) = %v, %v", v, ok)
	}
}

func TestSetOverwritesAcrossCase(t *testing.T) {
	m := New[int]()
	m.Set("alice", 1)
	m.Set("ALICE", 2)

	if m.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", m.Len())
	}
	if v, _ := m.Get("Alice"); v != 2 {
		t.Fatalf("expected overwritten value 2, got %d", v)
	}
}

func TestDeleteCaseInsensitive(t *testing.T) {
	m := New[int]()
	m.Set("Bob", 1)
	m.Delete("bob")

	if m.Has("BOB") {
		t.Fatal("expected key to be deleted")
	}
}

func TestKeysPreservesOriginalCasing(t *testing.T) {
	m := New[int]()
	m.Set("MixedCase", 1)

	keys := m.Keys()
	if len(keys) != 1 || keys[0] != "MixedCase" {
		t.Fatalf("expected [MixedCase], got %v", keys)
	}
}
