package middleware

import (
	"net/http"
	"strings"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/utils/requestctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID.
	UserIDKey = "user_id"
	// EmailKey is the context key for email.
	EmailKey = "email"
	// CapabilityKey is the context key for the caller's payment capability.
	CapabilityKey = "capability"
)

// Auth returns a middleware that validates bearer tokens and stores the
// caller's capability in the context. Users in admins manage every course.
// If optional is true, the middleware will not abort on missing/invalid tokens.
func Auth(validator outbound.AccessTokenPort, admins AdminSet, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			if !optional {
				c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
					Code:    "unauthorized",
					Message: "Authorization header required",
				})
				return
			}
			c.Next()
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			if !optional {
				c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
					Code:    "invalid_token",
					Message: "Invalid or expired token",
				})
				return
			}
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Set(CapabilityKey, model.Capability{
			UserID:         claims.UserID,
			ManageAll:      claims.ManageAll || admins.Contains(claims.UserID),
			ManagedCourses: claims.ManagedCourses,
		})
		c.Request = c.Request.WithContext(requestctx.WithActor(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// RequireAuth returns a middleware that requires a valid access token.
func RequireAuth(validator outbound.AccessTokenPort, admins AdminSet) gin.HandlerFunc {
	return Auth(validator, admins, false)
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
}

// GetUserID returns the user ID from context.
// Returns uuid.Nil if not found.
func GetUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get(UserIDKey); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

// GetCapability returns the caller's capability and whether one was set.
func GetCapability(c *gin.Context) (model.Capability, bool) {
	if val, exists := c.Get(CapabilityKey); exists {
		if capability, ok := val.(model.Capability); ok {
			return capability, true
		}
	}
	return model.Capability{}, false
}
