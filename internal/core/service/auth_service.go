package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/ports"
	"github.com/flowline/fileauth/pkg/logger"
)

// AuthService implements login and session-token handling over the
// user store.
type AuthService struct {
	store     ports.UserStore
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(store ports.UserStore, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 10 * time.Hour
	}
	return &AuthService{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// TokenTTL returns the configured token lifetime.
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }

// Login authenticates against the store and issues a signed token.
// All authentication failures surface uniformly as
// domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, passwd string) (string, *domain.User, error) {
	if username == "" || passwd == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user := s.store.Authenticate(username, passwd)
	if user == nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// SerializeUser builds the claim set embedded in session tokens. The
// password hash is deliberately absent.
func (s *AuthService) SerializeUser(user *domain.User) domain.Claims {
	return domain.Claims{
		Username:  user.Username,
		Role:      user.Role,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// ResolveClaims maps a claim set back onto the current store state.
// The embedded role is never trusted: a forged or stale token cannot
// grant access the live record does not hold. Returns nil when the
// username claim is empty, the user no longer exists, or the account
// is inactive.
func (s *AuthService) ResolveClaims(claims domain.Claims) *domain.User {
	if claims.Username == "" {
		logger.Get().Warn().Msg("session token missing username claim")
		return nil
	}

	user := s.store.GetUser(claims.Username)
	if user == nil {
		logger.Get().Warn().Str("username", claims.Username).Msg("session user no longer in store")
		return nil
	}
	if !user.Active {
		logger.Get().Warn().Str("username", claims.Username).Msg("session user is inactive")
		return nil
	}
	return user
}

// ParseToken validates signature, algorithm, and expiry, returning the
// embedded claim set. Callers still pass the result through
// ResolveClaims before trusting it.
func (s *AuthService) ParseToken(token string) (domain.Claims, error) {
	mapClaims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, mapClaims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return domain.Claims{}, err
	}
	if !parsed.Valid {
		return domain.Claims{}, errors.New("invalid token")
	}

	return domain.Claims{
		Username:  claimString(mapClaims, "username"),
		Role:      claimString(mapClaims, "role"),
		Email:     claimString(mapClaims, "email"),
		FirstName: claimString(mapClaims, "first_name"),
		LastName:  claimString(mapClaims, "last_name"),
	}, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := s.SerializeUser(user)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username":   claims.Username,
		"role":       claims.Role,
		"email":      claims.Email,
		"first_name": claims.FirstName,
		"last_name":  claims.LastName,
		"exp":        time.Now().Add(s.tokenTTL).Unix(),
	})
	return t.SignedString([]byte(s.jwtSecret))
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
