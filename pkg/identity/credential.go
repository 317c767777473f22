package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Iterations is the work factor for password hashing. Account
// passwords use PBKDF2-SHA256 rather than bcrypt, so this draws on
// golang.org/x/crypto/pbkdf2 instead of golang.org/x/crypto/bcrypt for a
// fixed-time compare of a deterministic hash.
const PBKDF2Iterations = 210_000

const pbkdf2KeyLen = 32 // SHA-256 output size

// ErrInvalidCredentials is returned when credentials don't match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrPasswordTooShort is returned when a password is too short.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// MinPasswordLength is the minimum required password length.
const MinPasswordLength = 8

// HashPassword derives a PBKDF2-SHA256 hash of password with a fresh
// random salt, returning both the salt and hash base64-encoded for
// storage on User.PasswordSalt / User.PasswordHash.
func HashPassword(password string) (salt string, hash string, err error) {
	if len(password) < MinPasswordLength {
		return "", "", ErrPasswordTooShort
	}

	saltBytes := make([]byte, 16)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}

	derived := derive(password, saltBytes)
	return base64.StdEncoding.EncodeToString(saltBytes), base64.StdEncoding.EncodeToString(derived), nil
}

// VerifyPassword performs a fixed-time comparison of password against
// the stored salt/hash pair.
func VerifyPassword(password, salt, hash string) bool {
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}

	derived := derive(password, saltBytes)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

func derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, pbkdf2KeyLen, sha256.New)
}
