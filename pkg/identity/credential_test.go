package identity

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	salt, hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword("correct-horse-battery", salt, hash) {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword("wrong-password", salt, hash) {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, _, err := HashPassword("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestHashPasswordProducesDistinctSalts(t *testing.T) {
	salt1, _, _ := HashPassword("same-password-1")
	salt2, _, _ := HashPassword("same-password-1")

	if salt1 == salt2 {
		t.Fatal("expected distinct salts across hashing calls")
	}
}
