package gin

import (
	"net/http"
	"strconv"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
)

// getCapability returns the caller's capability, writing 401 if the request
// is not authenticated.
func getCapability(c *gin.Context) (model.Capability, bool) {
	capability, ok := middleware.GetCapability(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    "unauthorized",
			Message: "User not authenticated",
		})
		return model.Capability{}, false
	}
	return capability, true
}

// parseOrderID reads the :id path parameter, writing 400 if it is not a
// positive integer.
func parseOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    "invalid_id",
			Message: "invalid order ID",
		})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}
