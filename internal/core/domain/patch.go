package domain

// NewUserParams carries the caller-supplied fields for user creation.
// The plain-text password is hashed by the store before the record is
// built; created users start active.
type NewUserParams struct {
	Username  string
	Password  string
	Role      string
	Email     string
	FirstName string
	LastName  string
}

// UserPatch is a partial update: nil fields are left unchanged. A
// non-nil Password is re-hashed (with policy validation) and a non-nil
// Role is validated against the known set.
type UserPatch struct {
	Password  *string
	Role      *string
	Email     *string
	FirstName *string
	LastName  *string
	Active    *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Password == nil && p.Role == nil && p.Email == nil &&
		p.FirstName == nil && p.LastName == nil && p.Active == nil
}
