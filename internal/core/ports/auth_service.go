package ports

import (
	"context"
	"time"

	"github.com/flowline/fileauth/internal/core/domain"
)

// AuthService issues and validates session tokens on top of the store.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	SerializeUser(user *domain.User) domain.Claims
	ResolveClaims(claims domain.Claims) *domain.User
	ParseToken(token string) (domain.Claims, error)
	TokenTTL() time.Duration
}
