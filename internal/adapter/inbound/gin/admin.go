package gin

import (
	"net/http"

	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/port/inbound"
	"github.com/coursepay/server/internal/utils/metrics"
	"github.com/gin-gonic/gin"
)

// adminHandler implements inbound.AdminHttpPort.
type adminHandler struct {
	orderDomain order.OrderDomain
	metrics     *metrics.Metrics
}

// NewAdminHandler creates the payment maintenance handler. m may be nil.
func NewAdminHandler(orderDomain order.OrderDomain, m *metrics.Metrics) inbound.AdminHttpPort {
	return &adminHandler{orderDomain: orderDomain, metrics: m}
}

// RegisterAdminRoutes registers maintenance routes. guard must restrict them
// to callers that manage every course.
func RegisterAdminRoutes(r *gin.RouterGroup, adapter inbound.AdminHttpPort, guard gin.HandlerFunc) {
	admin := r.Group("/admin", guard)
	{
		admin.POST("/reconcile", adapter.Reconcile)
	}
}

// Reconcile runs one reconciliation pass.
//
//	@Summary	Reconcile settlements and expiries
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		dry_run		query		bool	false	"Report without writing"
//	@Param		batch_size	query		int		false	"Rows per query"
//	@Success	200			{object}	model.ReconcileReport
//	@Router		/admin/reconcile [post]
func (h *adminHandler) Reconcile(c *gin.Context) {
	var req struct {
		DryRun    bool `form:"dry_run"`
		BatchSize int  `form:"batch_size" binding:"omitempty,min=1,max=10000"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid_input", err)
		return
	}

	report, err := h.orderDomain.Reconcile(c.Request.Context(), order.ReconcileOptions{
		DryRun:    req.DryRun,
		BatchSize: req.BatchSize,
	})
	if report != nil && h.metrics != nil && !req.DryRun {
		h.metrics.RecordReconcile(report.Settled, report.RefundSettled, report.Expired, report.Failures)
	}
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Compile-time check
var _ inbound.AdminHttpPort = (*adminHandler)(nil)
