package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is a role asserted by the identity service in the access token.
type UserRole string

const (
	RoleStaff   UserRole = "staff"
	RoleAdvisor UserRole = "advisor"
	RoleAdmin   UserRole = "admin"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	ProgramID string   `json:"program_id,omitempty"`
	jwt.RegisteredClaims
}
