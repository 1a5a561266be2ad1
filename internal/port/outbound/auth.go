package outbound

import "github.com/google/uuid"

// AccessClaims are the caller claims carried by a validated access token.
type AccessClaims struct {
	UserID uuid.UUID
	Email  string
	// ManageAll grants manage-payments on every course.
	ManageAll bool
	// ManagedCourses lists the courses the caller manages payments for.
	ManagedCourses []uuid.UUID
}

// AccessTokenPort validates bearer access tokens.
type AccessTokenPort interface {
	// ValidateAccessToken parses and verifies token.
	ValidateAccessToken(token string) (*AccessClaims, error)
}
