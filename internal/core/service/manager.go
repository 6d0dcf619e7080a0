package service

import (
	"strings"

	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/policy"
)

// adminOnlyMenus lists navigation entries visible only to admins.
// Matching is case-insensitive: entry names are lower-cased before the
// lookup.
var adminOnlyMenus = map[string]struct{}{
	"connections": {},
	"variables":   {},
	"pools":       {},
	"config":      {},
	"admin":       {},
}

// AuthManager is the capability surface a host framework consumes:
// per-resource authorization predicates over resolved users, batch
// variants, and menu filtering. It is stateless and safe for
// concurrent use; callers resolve users first (see
// AuthService.ResolveClaims).
type AuthManager struct{}

func NewAuthManager() *AuthManager {
	return &AuthManager{}
}

// AccessRequest is one element of a batch authorization check.
type AccessRequest struct {
	Method string
	User   *domain.User
}

// roleOf extracts the role for policy decisions. A nil user scores as
// viewer, the most restrictive role that still has a hierarchy level;
// any write check against it fails.
func roleOf(user *domain.User) string {
	if user == nil {
		return domain.RoleViewer
	}
	return user.Role
}

func (m *AuthManager) IsAuthorizedConfiguration(method string, user *domain.User) bool {
	return policy.IsAuthorizedConfiguration(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedConnection(method string, user *domain.User) bool {
	return policy.IsAuthorizedConnection(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedVariable(method string, user *domain.User) bool {
	return policy.IsAuthorizedVariable(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedPool(method string, user *domain.User) bool {
	return policy.IsAuthorizedPool(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedDag(method string, user *domain.User) bool {
	return policy.IsAuthorizedDag(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedDataset(method string, user *domain.User) bool {
	return policy.IsAuthorizedDataset(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedBackfill(method string, user *domain.User) bool {
	return policy.IsAuthorizedBackfill(method, roleOf(user))
}

func (m *AuthManager) IsAuthorizedView(user *domain.User) bool {
	return policy.IsAuthorizedView(roleOf(user))
}

func (m *AuthManager) IsAuthorizedCustomView(method, resourceName string, user *domain.User) bool {
	return policy.IsAuthorizedCustomView(method, roleOf(user), resourceName)
}

// Batch variants authorize a sequence only when every element passes,
// a logical AND over the whole slice.

func (m *AuthManager) BatchIsAuthorizedConnection(requests []AccessRequest) bool {
	return m.batch(requests, m.IsAuthorizedConnection)
}

func (m *AuthManager) BatchIsAuthorizedDag(requests []AccessRequest) bool {
	return m.batch(requests, m.IsAuthorizedDag)
}

func (m *AuthManager) BatchIsAuthorizedPool(requests []AccessRequest) bool {
	return m.batch(requests, m.IsAuthorizedPool)
}

func (m *AuthManager) BatchIsAuthorizedVariable(requests []AccessRequest) bool {
	return m.batch(requests, m.IsAuthorizedVariable)
}

func (m *AuthManager) batch(requests []AccessRequest, check func(string, *domain.User) bool) bool {
	for _, req := range requests {
		if !check(req.Method, req.User) {
			return false
		}
	}
	return true
}

// FilterMenuItems hides admin-only navigation entries from non-admins.
// This is a visibility convenience, not a security boundary: the
// per-operation predicates above still gate actual access. All other
// entries pass through for every role.
func (m *AuthManager) FilterMenuItems(items []string, user *domain.User) []string {
	role := roleOf(user)
	filtered := make([]string, 0, len(items))
	for _, item := range items {
		if _, adminOnly := adminOnlyMenus[strings.ToLower(item)]; adminOnly {
			if policy.HasMinimumRole(role, policy.Admin) {
				filtered = append(filtered, item)
			}
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}
