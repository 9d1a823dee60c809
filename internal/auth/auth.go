// Package auth decides what an identity may do and checks passwords.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Capability is a named permission.
type Capability string

// CapViewLessons allows reading and posting lessons.
const CapViewLessons Capability = "view:lessons"

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrEmptyPassword      = errors.New("password cannot be empty")
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// Authorizer answers capability questions from a static grant table.
// It is immutable after construction and safe for concurrent use.
type Authorizer struct {
	grants map[string]map[Capability]bool
}

// NewAuthorizer builds an Authorizer from identity -> capability names.
// Identities are matched case-insensitively after trimming.
func NewAuthorizer(grants map[string][]string) *Authorizer {
	a := &Authorizer{grants: make(map[string]map[Capability]bool, len(grants))}
	for identity, caps := range grants {
		key := normalize(identity)
		if key == "" {
			continue
		}
		set := a.grants[key]
		if set == nil {
			set = make(map[Capability]bool, len(caps))
			a.grants[key] = set
		}
		for _, c := range caps {
			set[Capability(strings.TrimSpace(c))] = true
		}
	}
	return a
}

// HasCapability reports whether identity holds c. The empty identity
// (anonymous viewer) never holds anything.
func (a *Authorizer) HasCapability(identity string, c Capability) bool {
	if a == nil {
		return false
	}
	key := normalize(identity)
	if key == "" {
		return false
	}
	return a.grants[key][c]
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with hash. Any mismatch or malformed
// hash returns ErrInvalidCredentials.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
