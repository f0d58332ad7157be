package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates roles carried in access tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleRegistrar UserRole = "REGISTRAR"
	RoleLecturer  UserRole = "LECTURER"
	RoleStudent   UserRole = "STUDENT"
)

// IsStaff reports whether the role may administer schedules and enrollments.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleRegistrar
}

// JWTClaims is the payload of access tokens issued by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"uid"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"name,omitempty"`
	Role     UserRole `json:"role"`
	BranchID string   `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies who performs an operation.
type Actor struct {
	UserID   string
	Role     UserRole
	BranchID string
}

// Actor derives the acting user from the claims.
func (c *JWTClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role, BranchID: c.BranchID}
}

// SystemActor is used for work performed by background workers.
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}
