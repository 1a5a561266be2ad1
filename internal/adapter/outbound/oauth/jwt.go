package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/port/outbound"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret string
	Issuer string
}

// accessClaims is the token payload. Courses are the ones whose payments the
// subject manages.
type accessClaims struct {
	Email     string   `json:"email,omitempty"`
	ManageAll bool     `json:"manage_all,omitempty"`
	Courses   []string `json:"courses,omitempty"`
	jwt.RegisteredClaims
}

// jwtManager implements outbound.AccessTokenPort.
type jwtManager struct {
	secret []byte
	issuer string
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(cfg *JWTConfig) outbound.AccessTokenPort {
	return &jwtManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// GenerateAccessToken signs an access token for claims.
func (m *jwtManager) GenerateAccessToken(claims *outbound.AccessClaims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	courses := make([]string, 0, len(claims.ManagedCourses))
	for _, id := range claims.ManagedCourses {
		courses = append(courses, id.String())
	}

	payload := accessClaims{
		Email:     claims.Email,
		ManageAll: claims.ManageAll,
		Courses:   courses,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken validates an access token.
func (m *jwtManager) ValidateAccessToken(tokenString string) (*outbound.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	courses := make([]uuid.UUID, 0, len(claims.Courses))
	for _, c := range claims.Courses {
		id, err := uuid.Parse(c)
		if err != nil {
			return nil, fmt.Errorf("%w: course %q is not a uuid", ErrInvalidToken, c)
		}
		courses = append(courses, id)
	}

	return &outbound.AccessClaims{
		UserID:         userID,
		Email:          claims.Email,
		ManageAll:      claims.ManageAll,
		ManagedCourses: courses,
	}, nil
}

// Compile-time check
var _ outbound.AccessTokenPort = (*jwtManager)(nil)
