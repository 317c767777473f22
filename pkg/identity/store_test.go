package identity

import "testing"

func newTestUser(t *testing.T, username, password string) *User {
	t.Helper()
	salt, hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &User{
		Username:     username,
		PasswordSalt: salt,
		PasswordHash: hash,
		Enabled:      true,
	}
}

func TestMemoryStoreUserCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	u := newTestUser(t, "Alice", "hunter2-hunter2")

	if err := s.PutUser(u); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	got, err := s.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "Alice" {
		t.Fatalf("expected original casing preserved, got %q", got.Username)
	}
}

func TestValidateCredentials(t *testing.T) {
	s := NewMemoryStore()
	u := newTestUser(t, "bob", "correct-password-1")
	_ = s.PutUser(u)

	if _, err := s.ValidateCredentials("bob", "correct-password-1"); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
	if _, err := s.ValidateCredentials("bob", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.ValidateCredentials("nobody", "whatever"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestValidateCredentialsDisabledUser(t *testing.T) {
	s := NewMemoryStore()
	u := newTestUser(t, "carol", "another-password-1")
	u.Enabled = false
	_ = s.PutUser(u)

	if _, err := s.ValidateCredentials("carol", "another-password-1"); err != ErrUserDisabled {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestWithUserLockMutatesCredits(t *testing.T) {
	s := NewMemoryStore()
	u := newTestUser(t, "dave", "yet-another-password")
	u.CreditsKiB = 100
	_ = s.PutUser(u)

	err := s.WithUserLock("dave", func(u *User) error {
		u.CreditsKiB += 50
		return nil
	})
	if err != nil {
		t.Fatalf("WithUserLock: %v", err)
	}

	got, _ := s.GetUser("dave")
	if got.CreditsKiB != 150 {
		t.Fatalf("expected 150 credits, got %d", got.CreditsKiB)
	}
}
