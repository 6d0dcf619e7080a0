// Package password implements the credential policy: strength
// validation, bcrypt hashing, and constant-behavior verification.
package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 8
	MaxLength = 128

	// bcryptCost is the fixed work factor for new hashes.
	bcryptCost = 12

	// bcrypt only consumes the first 72 bytes of input; longer
	// passwords are truncated to that prefix for both Hash and Verify
	// so the two stay consistent.
	bcryptMaxInput = 72

	specialChars = "!@#$%^&*(),.?\":{}|<>_-+=[]\\;'/`~"

	// dummyHash is a structurally valid cost-12 hash that matches no
	// password. Comparing against it pays the full bcrypt work.
	dummyHash = "$2a$12$wtyWo09lBMUWUbXKGIGZlOe0NqJW0XhCVaRGXdtsA5BhXnUPkxsMy"
)

// PolicyError reports the first strength rule a password violates.
type PolicyError struct {
	Rule string
}

func (e *PolicyError) Error() string {
	return "password policy: " + e.Rule
}

// Validate checks password against the strength policy. Rules are
// evaluated in a fixed order (min length, max length, uppercase,
// lowercase, digit, special) and only the first violation is reported.
// Lengths count characters, not bytes.
func Validate(password string) error {
	if n := utf8.RuneCountInString(password); n < MinLength {
		return &PolicyError{Rule: fmt.Sprintf("must be at least %d characters long", MinLength)}
	} else if n > MaxLength {
		return &PolicyError{Rule: fmt.Sprintf("must be at most %d characters long", MaxLength)}
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return &PolicyError{Rule: "must contain at least one uppercase letter"}
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return &PolicyError{Rule: "must contain at least one lowercase letter"}
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return &PolicyError{Rule: "must contain at least one digit"}
	}
	if !strings.ContainsAny(password, specialChars) {
		return &PolicyError{Rule: "must contain at least one special character"}
	}
	return nil
}

// Hash validates password against the policy and returns a bcrypt hash.
// Each call draws a fresh salt, so hashing the same password twice
// yields different strings.
func Hash(password string) (string, error) {
	if err := Validate(password); err != nil {
		return "", err
	}
	return HashUnchecked(password)
}

// HashUnchecked hashes without policy validation, for callers that
// enforce their own rules.
func HashUnchecked(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncate(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. Malformed or empty
// hashes return false rather than an error so callers cannot tell a
// broken record apart from a wrong password.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(password)) == nil
}

// VerifyDummy runs a full-cost verification against a hash that can
// never match and always returns false. Callers on no-such-user paths
// use it so their response time matches a real mismatch.
func VerifyDummy(password string) bool {
	return Verify(password, dummyHash)
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > bcryptMaxInput {
		b = b[:bcryptMaxInput]
	}
	return b
}
