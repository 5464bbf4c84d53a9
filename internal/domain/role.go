package domain

import "fmt"

// Role is the permission level of a user account. Roles are totally
// ordered by weight; every administrative mutation is gated on the
// actor's weight being strictly greater than the target's.
//
// The underlying values are the localized display strings used on the
// wire and in the database. They must not be changed: clients and the
// system_user table store them verbatim.
type Role string

const (
	RoleUser       Role = "用户"
	RoleAdmin      Role = "管理员"
	RoleSuperAdmin Role = "超级管理员"
)

// roleWeights assigns each role its integer rank.
var roleWeights = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// ParseRole validates a wire string and returns the corresponding Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleWeights[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := roleWeights[r]
	return ok
}

// Weight returns the integer rank of the role. Unknown roles rank 0,
// below every valid role.
func (r Role) Weight() int {
	return roleWeights[r]
}

// IsAdmin reports whether the role carries administrative privileges.
func (r Role) IsAdmin() bool {
	return r.Weight() >= roleWeights[RoleAdmin]
}

// CanActOn reports whether an actor with this role may mutate a target
// with role t. Equal weight is not enough: admins cannot act on admins.
func (r Role) CanActOn(t Role) bool {
	return r.Weight() > t.Weight()
}

// CanAssign reports whether an actor with this role may hand out role t
// to another account.
func (r Role) CanAssign(t Role) bool {
	return r.Weight() > t.Weight()
}

// AtOrBelow returns the roles whose weight is less than or equal to r,
// in ascending weight order. Listing queries are scoped to this set so
// an admin never sees super admin rows.
func (r Role) AtOrBelow() []Role {
	var out []Role
	for _, c := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
		if c.Weight() <= r.Weight() {
			out = append(out, c)
		}
	}
	return out
}

// Below returns the roles strictly below r in ascending weight order.
func (r Role) Below() []Role {
	var out []Role
	for _, c := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
		if c.Weight() < r.Weight() {
			out = append(out, c)
		}
	}
	return out
}

// String returns the wire form of the role.
func (r Role) String() string {
	return string(r)
}
