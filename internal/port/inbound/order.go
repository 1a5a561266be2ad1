package inbound

import "github.com/gin-gonic/gin"

// OrderHttpPort defines HTTP handler interface for order operations.
type OrderHttpPort interface {
	// CreateOrder handles POST /orders
	CreateOrder(c *gin.Context)

	// RecordAuthorization handles POST /orders/:id/authorization
	RecordAuthorization(c *gin.Context)

	// GetOrder handles GET /orders/:id
	GetOrder(c *gin.Context)

	// ListOrders handles GET /orders
	ListOrders(c *gin.Context)

	// RequestAction handles POST /orders/:id/actions
	RequestAction(c *gin.Context)

	// Capture handles POST /orders/:id/capture
	Capture(c *gin.Context)

	// Refund handles POST /orders/:id/refund
	Refund(c *gin.Context)

	// Void handles POST /orders/:id/void
	Void(c *gin.Context)

	// Delete handles DELETE /orders/:id
	Delete(c *gin.Context)
}

// AdminHttpPort defines HTTP handler interface for payment maintenance.
type AdminHttpPort interface {
	// Reconcile handles POST /admin/reconcile
	Reconcile(c *gin.Context)
}
