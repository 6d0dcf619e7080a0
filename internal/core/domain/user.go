package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrDuplicateUser = errors.New("user already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrInvalidRole = errors.New("invalid role: must be admin, editor, or viewer")

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEditor || role == RoleViewer
}

// User is a single account from the users file. Instances are owned by
// the store; callers treat them as read-only snapshots.
type User struct {
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"`
	Role         string         `json:"role"`
	Email        string         `json:"email,omitempty"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	Active       bool           `json:"active"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewUser builds a validated User. The password hash must already be
// computed; role must be one of the known roles.
func NewUser(username, passwordHash, role string) (*User, error) {
	u := &User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the record invariants: non-empty username and hash,
// known role. Also used for entries decoded from disk.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password_hash is required")
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("%w (got %q)", ErrInvalidRole, u.Role)
	}
	return nil
}

// DisplayName returns "First Last" when either name is set, otherwise
// the username.
func (u *User) DisplayName() string {
	if u.FirstName != "" || u.LastName != "" {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return u.Username
}

// Clone returns a deep copy so store internals never leak to callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.Metadata != nil {
		clone.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
