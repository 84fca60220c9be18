package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents roles accepted on operator endpoints.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStaff   UserRole = "STAFF"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens. Token issuance is
// handled by the identity collaborator; this service only verifies.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	OrgID  string   `json:"org_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
