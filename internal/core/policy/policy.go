// Package policy is the stateless authorization decision engine: a
// three-tier role hierarchy and pure (method, resource, role) to bool
// predicates. It holds no reference to the user store; callers resolve
// the role first.
package policy

import "github.com/flowline/fileauth/internal/core/domain"

// Role is a hierarchy participant. Values mirror domain role strings.
type Role string

const (
	Admin  Role = domain.RoleAdmin
	Editor Role = domain.RoleEditor
	Viewer Role = domain.RoleViewer
)

// Methods recognised by the predicates. MENU is the visibility check
// issued when rendering navigation.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
	MethodMenu   = "MENU"
)

// roleLevels orders the hierarchy: admin > editor > viewer. Roles
// outside the map score zero and fail every minimum-role check.
var roleLevels = map[Role]int{
	Admin:  3,
	Editor: 2,
	Viewer: 1,
}

// adminOnlyResources lists named resources whose write methods require
// the admin role in custom-view checks.
var adminOnlyResources = map[string]struct{}{
	"Connection":    {},
	"Variable":      {},
	"Configuration": {},
	"Pool":          {},
}

// Level returns the hierarchy level for a role string, zero for
// unknown roles.
func Level(role string) int {
	return roleLevels[Role(role)]
}

// HasMinimumRole reports whether userRole is at least required in the
// hierarchy. Unknown role strings always fail (fail closed).
func HasMinimumRole(userRole string, required Role) bool {
	return Level(userRole) >= roleLevels[required]
}

func readOnly(method string) bool {
	return method == MethodGet || method == MethodMenu
}

// decide is the shared shape of every resource predicate: reads need
// viewer, writes need the resource's write role.
func decide(method, userRole string, writeRole Role) bool {
	if readOnly(method) {
		return HasMinimumRole(userRole, Viewer)
	}
	return HasMinimumRole(userRole, writeRole)
}

// IsAuthorizedConfiguration gates platform configuration: writes are
// admin-only.
func IsAuthorizedConfiguration(method, userRole string) bool {
	return decide(method, userRole, Admin)
}

// IsAuthorizedConnection gates external connections: writes are
// admin-only (they routinely embed credentials).
func IsAuthorizedConnection(method, userRole string) bool {
	return decide(method, userRole, Admin)
}

// IsAuthorizedVariable gates variables: writes are admin-only.
func IsAuthorizedVariable(method, userRole string) bool {
	return decide(method, userRole, Admin)
}

// IsAuthorizedPool gates execution pools: writes are admin-only.
func IsAuthorizedPool(method, userRole string) bool {
	return decide(method, userRole, Admin)
}

// IsAuthorizedDag gates workflow definitions and runs: writes need
// editor.
func IsAuthorizedDag(method, userRole string) bool {
	return decide(method, userRole, Editor)
}

// IsAuthorizedDataset gates datasets/assets: writes need editor.
func IsAuthorizedDataset(method, userRole string) bool {
	return decide(method, userRole, Editor)
}

// IsAuthorizedBackfill gates backfills: writes need editor.
func IsAuthorizedBackfill(method, userRole string) bool {
	return decide(method, userRole, Editor)
}

// IsAuthorizedView grants dashboard views to any authenticated role.
func IsAuthorizedView(userRole string) bool {
	return HasMinimumRole(userRole, Viewer)
}

// IsAuthorizedCustomView gates plugin-registered resources by name:
// reads need viewer, writes need admin for the admin-only set and
// editor otherwise.
func IsAuthorizedCustomView(method, userRole, resourceName string) bool {
	if readOnly(method) {
		return HasMinimumRole(userRole, Viewer)
	}
	if _, ok := adminOnlyResources[resourceName]; ok {
		return HasMinimumRole(userRole, Admin)
	}
	return HasMinimumRole(userRole, Editor)
}
