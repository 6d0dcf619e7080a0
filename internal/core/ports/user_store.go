package ports

import (
	"github.com/flowline/fileauth/internal/core/domain"
)

// UserStore defines the interface for the file-backed user collection.
type UserStore interface {
	// Load reads the backing file, degrading to an empty collection on
	// any storage failure. Reload forces a fresh read; Save persists
	// the in-memory state atomically.
	Load()
	Reload()
	Save() error

	GetUser(username string) *domain.User
	GetAllUsers() []*domain.User
	UserExists(username string) bool

	// Authenticate returns the user on success and nil on any failure
	// (unknown user, inactive account, bad password), without
	// distinguishing them to the caller.
	Authenticate(username, password string) *domain.User

	AddUser(params domain.NewUserParams) (*domain.User, error)
	UpdateUser(username string, patch domain.UserPatch) (*domain.User, error)
	DeleteUser(username string) error
}
