package identity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/m4mm0n/amFTPd-sub003/pkg/foldedmap"
)

// Common Store errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrUserDisabled    = errors.New("user account is disabled")
	ErrDuplicateUser   = errors.New("user already exists")
	ErrDuplicateGroup  = errors.New("group already exists")
)

// Store provides thread-safe user, group, and section management.
//
// Implementations must be safe for concurrent use; credit consume/award
// must be serialized by the user's lock in the user store, which
// MemoryStore implements as a single RWMutex guarding all
// three maps (users, groups, and sections are small and looked up far
// more often than mutated, so one coarse lock is simpler than per-user
// locks and still satisfies the ordering requirement).
type Store interface {
	GetUser(username string) (*User, error)
	PutUser(u *User) error
	DeleteUser(username string) error
	ListUsers() ([]*User, error)

	GetGroup(name string) (*Group, error)
	PutGroup(g *Group) error
	ListGroups() ([]*Group, error)

	GetSection(name string) (*Section, error)
	PutSection(s *Section) error
	ListSections() ([]*Section, error)

	// ValidateCredentials verifies username/password using fixed-time
	// comparison. Returns ErrInvalidCredentials or ErrUserDisabled.
	ValidateCredentials(username, password string) (*User, error)

	// WithUserLock runs fn with the named user's record locked for the
	// duration of fn, so credit consume/award is atomic with respect to
	// concurrent transfers by the same user.
	WithUserLock(username string, fn func(u *User) error) error
}

// MemoryStore is an in-memory Store. Persistence (if any) is the
// caller's responsibility — e.g. periodically snapshotting users and
// groups to disk.
type MemoryStore struct {
	mu       sync.RWMutex
	users    *foldedmap.Map[*User]
	groups   *foldedmap.Map[*Group]
	sections *foldedmap.Map[*Section]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    foldedmap.New[*User](),
		groups:   foldedmap.New[*Group](),
		sections: foldedmap.New[*Section](),
	}
}

func (s *MemoryStore) GetUser(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users.Get(username)
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) PutUser(u *User) error {
	if u == nil || u.Username == "" {
		return fmt.Errorf("user must have a username")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Set(u.Username, u)
	return nil
}

func (s *MemoryStore) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users.Has(username) {
		return ErrUserNotFound
	}
	s.users.Delete(username)
	return nil
}

func (s *MemoryStore) ListUsers() ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	s.users.Range(func(_ string, u *User) bool {
		out = append(out, u)
		return true
	})
	return out, nil
}

func (s *MemoryStore) GetGroup(name string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups.Get(name)
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

func (s *MemoryStore) PutGroup(g *Group) error {
	if g == nil || g.Name == "" {
		return fmt.Errorf("group must have a name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups.Set(g.Name, g)
	return nil
}

func (s *MemoryStore) ListGroups() ([]*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Group
	s.groups.Range(func(_ string, g *Group) bool {
		out = append(out, g)
		return true
	})
	return out, nil
}

func (s *MemoryStore) GetSection(name string) (*Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sections.Get(name)
	if !ok {
		return nil, ErrSectionNotFound
	}
	return sec, nil
}

func (s *MemoryStore) PutSection(sec *Section) error {
	if sec == nil || sec.Name == "" {
		return fmt.Errorf("section must have a name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections.Set(sec.Name, sec)
	return nil
}

func (s *MemoryStore) ListSections() ([]*Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Section
	s.sections.Range(func(_ string, sec *Section) bool {
		out = append(out, sec)
		return true
	})
	return out, nil
}

func (s *MemoryStore) ValidateCredentials(username, password string) (*User, error) {
	u, err := s.GetUser(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Enabled {
		return nil, ErrUserDisabled
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *MemoryStore) WithUserLock(username string, fn func(u *User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Get(username)
	if !ok {
		return ErrUserNotFound
	}
	return fn(u)
}
