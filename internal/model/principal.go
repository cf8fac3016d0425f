package model

import "github.com/google/uuid"

type Role string

const (
	RoleStaff   Role = "STAFF"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// Principal is the authenticated caller as supplied by the identity
// provider. The service only enforces role checks; it never authenticates.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsManager() bool {
	return p.Role == RoleManager
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageLifecycle gates confirm/activate/complete/close and refunds.
func (p Principal) CanManageLifecycle() bool {
	return p.IsManager() || p.IsAdmin()
}
