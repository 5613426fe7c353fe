package model

// Role is the coarse actor role supplied by the identity layer.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role is one the service understands.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleAdmin
}

// Principal is the authenticated actor attached to every operation.
type Principal struct {
	UserID int64
	Role   Role
}
