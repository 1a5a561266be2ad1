package middleware

import (
	"net/http"
	"strings"

	"github.com/coursepay/server/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminSet holds the users that manage payments on every course.
type AdminSet map[uuid.UUID]struct{}

// NewAdminSet parses user ids. Entries that are not UUIDs are skipped.
func NewAdminSet(userIDs []string) AdminSet {
	set := make(AdminSet, len(userIDs))
	for _, raw := range userIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil || id == uuid.Nil {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is an admin.
func (s AdminSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// RequireManageAll aborts unless the caller manages payments on every course.
// It must run after Auth.
func RequireManageAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		capability, ok := GetCapability(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Code:    "unauthorized",
				Message: "User not authenticated",
			})
			return
		}
		if !capability.ManageAll {
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{
				Code:    "forbidden",
				Message: "Manage payments on all courses required",
			})
			return
		}
		c.Next()
	}
}
