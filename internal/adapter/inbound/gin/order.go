package gin

import (
	"errors"
	"net/http"

	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/inbound"
	"github.com/coursepay/server/internal/utils/metrics"
	"github.com/coursepay/server/internal/utils/money"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// orderHandler implements inbound.OrderHttpPort.
type orderHandler struct {
	orderDomain order.OrderDomain
	metrics     *metrics.Metrics
}

// NewOrderHandler creates a new order HTTP handler. m may be nil.
func NewOrderHandler(orderDomain order.OrderDomain, m *metrics.Metrics) inbound.OrderHttpPort {
	return &orderHandler{orderDomain: orderDomain, metrics: m}
}

// RegisterOrderRoutes registers order routes. mutating wraps the endpoints
// that may reach the payment gateway.
func RegisterOrderRoutes(r *gin.RouterGroup, adapter inbound.OrderHttpPort, mutating ...gin.HandlerFunc) {
	orders := r.Group("/orders")
	{
		orders.GET("", adapter.ListOrders)
		orders.POST("", adapter.CreateOrder)
		orders.GET("/:id", adapter.GetOrder)
		orders.POST("/:id/authorization", adapter.RecordAuthorization)
		orders.POST("/:id/actions", adapter.RequestAction)
	}

	confirmed := orders.Group("", mutating...)
	{
		confirmed.POST("/:id/capture", adapter.Capture)
		confirmed.POST("/:id/refund", adapter.Refund)
		confirmed.POST("/:id/void", adapter.Void)
		confirmed.DELETE("/:id", adapter.Delete)
	}
}

// ListOrders lists the orders the caller may see.
//
//	@Summary		List payment orders
//	@Description	Orders are scoped to the caller: payers see their own, managers see their courses.
//	@Tags			Order
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status			query		string	false	"all, pending or a raw status"
//	@Param			search_field	query		string	false	"order_id, trans_id or last_four"
//	@Param			q				query		string	false	"Search value"
//	@Param			course_id		query		string	false	"Course filter"
//	@Param			page			query		int		false	"Page number"
//	@Param			page_size		query		int		false	"Page size"
//	@Success		200				{object}	model.PaginatedResponse[model.OrderView]
//	@Failure		400				{object}	model.ErrorResponse
//	@Router			/orders [get]
func (h *orderHandler) ListOrders(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}

	var req model.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid_input", err)
		return
	}

	filter, err := model.ParseStatusFilter(req.Status)
	if err != nil {
		badRequest(c, "invalid_status", err)
		return
	}

	query := &model.ListQuery{
		Filter:            filter,
		SearchField:       model.SearchField(req.SearchField),
		SearchValue:       req.Query,
		PaginationRequest: req.PaginationRequest,
	}
	if req.CourseID != "" {
		courseID, err := uuid.Parse(req.CourseID)
		if err != nil {
			badRequest(c, "invalid_course_id", errors.New("course_id must be a UUID"))
			return
		}
		query.CourseID = &courseID
	}

	resp, err := h.orderDomain.ListOrders(c.Request.Context(), query, capability)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateOrder records a checkout order for the caller.
//
//	@Summary	Create a payment order
//	@Tags		Order
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		model.CreateOrderRequest	true	"Order"
//	@Success	201		{object}	model.Order
//	@Failure	400		{object}	model.ErrorResponse
//	@Router		/orders [post]
func (h *orderHandler) CreateOrder(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_input", err)
		return
	}

	amount, err := money.ParseMinor(req.Amount, req.Currency)
	if err != nil {
		badRequest(c, "invalid_amount", err)
		return
	}

	ord, err := h.orderDomain.CreateOrder(c.Request.Context(), capability.UserID, &model.CreateOrderInput{
		CourseID:     req.CourseID,
		Method:       req.Method,
		Amount:       amount,
		Currency:     req.Currency,
		MaskedDetail: req.MaskedDetail,
		PayerName:    req.PayerName,
	})
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ord)
}

// RecordAuthorization stores the outcome of the checkout authorization.
//
//	@Summary	Record the checkout authorization result
//	@Tags		Order
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int									true	"Order ID"
//	@Param		request	body		model.RecordAuthorizationRequest	true	"Gateway outcome"
//	@Success	200		{object}	model.OrderView
//	@Failure	409		{object}	model.ErrorResponse
//	@Router		/orders/{id}/authorization [post]
func (h *orderHandler) RecordAuthorization(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.RecordAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_input", err)
		return
	}

	view, err := h.orderDomain.RecordAuthorization(c.Request.Context(), orderID, &req, capability)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetOrder returns an order with its refund history.
//
//	@Summary	Get a payment order
//	@Tags		Order
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Order ID"
//	@Success	200	{object}	model.OrderDetail
//	@Failure	404	{object}	model.ErrorResponse
//	@Router		/orders/{id} [get]
func (h *orderHandler) GetOrder(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	detail, err := h.orderDomain.GetOrder(c.Request.Context(), orderID, capability)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// RequestAction issues the confirmation token for an action.
//
//	@Summary		Request an order action
//	@Description	Returns a single-use token that the matching confirm endpoint must carry.
//	@Tags			Order
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"Order ID"
//	@Param			request	body		model.ActionTicketRequest	true	"Action"
//	@Success		200		{object}	model.ConfirmationTicket
//	@Failure		403		{object}	model.ErrorResponse
//	@Failure		409		{object}	model.ErrorResponse
//	@Router			/orders/{id}/actions [post]
func (h *orderHandler) RequestAction(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.ActionTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_input", err)
		return
	}
	action, err := model.ParseAction(req.Action)
	if err != nil {
		badRequest(c, "invalid_action", err)
		return
	}

	intent := &model.ActionIntent{
		OrderID:  orderID,
		RefundID: req.RefundID,
		Action:   action,
	}
	if action == model.ActionRefund {
		amount, ok := h.parseRefundAmount(c, orderID, req.Amount, capability)
		if !ok {
			return
		}
		intent.Amount = amount
	}

	ticket, err := h.orderDomain.RequestAction(c.Request.Context(), intent, capability)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// Capture handles POST /orders/:id/capture
//
//	@Summary	Capture an authorized order
//	@Tags		Order
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int	true	"Order ID"
//	@Param		request	body		model.ConfirmRequest	true	"Confirmation"
//	@Success	200		{object}	model.ActionResult
//	@Failure	402		{object}	model.ErrorResponse
//	@Failure	409		{object}	model.ErrorResponse
//	@Failure	502		{object}	model.ErrorResponse
//	@Failure	504		{object}	model.ErrorResponse
//	@Router		/orders/{id}/capture [post]
func (h *orderHandler) Capture(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.ConfirmRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "confirmation_required", err)
		return
	}

	result, err := h.orderDomain.Capture(c.Request.Context(), &model.ConfirmedAction{
		OrderID: orderID,
		Token:   req.Token,
	}, capability)
	h.respond(c, model.ActionCapture, result, err)
}

// Refund handles POST /orders/:id/refund
//
//	@Summary	Refund a settled order
//	@Tags		Order
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int	true	"Order ID"
//	@Param		request	body		model.ConfirmRefundRequest	true	"Confirmation"
//	@Success	200		{object}	model.ActionResult
//	@Failure	409		{object}	model.ErrorResponse
//	@Failure	400		{object}	model.ErrorResponse
//	@Failure	502		{object}	model.ErrorResponse
//	@Failure	504		{object}	model.ErrorResponse
//	@Router		/orders/{id}/refund [post]
func (h *orderHandler) Refund(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.ConfirmRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "confirmation_required", err)
		return
	}
	amount, ok := h.parseRefundAmount(c, orderID, req.Amount, capability)
	if !ok {
		return
	}

	result, err := h.orderDomain.Refund(c.Request.Context(), &model.ConfirmedAction{
		OrderID:      orderID,
		Amount:       amount,
		RevokeAccess: req.RevokeAccess,
		Token:        req.Token,
	}, capability)
	h.respond(c, model.ActionRefund, result, err)
}

// Void handles POST /orders/:id/void
//
//	@Summary	Void an unsettled transaction
//	@Tags		Order
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int	true	"Order ID"
//	@Param		request	body		model.ConfirmVoidRequest	true	"Confirmation"
//	@Success	200		{object}	model.ActionResult
//	@Failure	402		{object}	model.ErrorResponse
//	@Failure	409		{object}	model.ErrorResponse
//	@Failure	502		{object}	model.ErrorResponse
//	@Failure	504		{object}	model.ErrorResponse
//	@Router		/orders/{id}/void [post]
func (h *orderHandler) Void(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.ConfirmVoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "confirmation_required", err)
		return
	}

	result, err := h.orderDomain.Void(c.Request.Context(), &model.ConfirmedAction{
		OrderID:  orderID,
		RefundID: req.RefundID,
		Token:    req.Token,
	}, capability)
	h.respond(c, model.ActionVoid, result, err)
}

// Delete handles DELETE /orders/:id. The token is read from the query string
// or the body.
//
//	@Summary	Delete an unpaid order
//	@Tags		Order
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int		true	"Order ID"
//	@Param		token	query		string	true	"Confirmation token"
//	@Success	200		{object}	model.ActionResult
//	@Failure	409		{object}	model.ErrorResponse
//	@Router		/orders/{id} [delete]
func (h *orderHandler) Delete(c *gin.Context) {
	capability, ok := getCapability(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.ConfirmRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "confirmation_required", err)
		return
	}

	result, err := h.orderDomain.Delete(c.Request.Context(), &model.ConfirmedAction{
		OrderID: orderID,
		Token:   req.Token,
	}, capability)
	h.respond(c, model.ActionDelete, result, err)
}

func (h *orderHandler) respond(c *gin.Context, action model.Action, result *model.ActionResult, err error) {
	if h.metrics != nil {
		h.metrics.RecordOrderAction(action.String(), actionOutcome(err))
	}
	if err != nil {
		handleOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseRefundAmount converts a decimal amount into minor units of the order's
// currency.
func (h *orderHandler) parseRefundAmount(c *gin.Context, orderID int64, raw string, capability model.Capability) (int64, bool) {
	if raw == "" {
		badRequest(c, "invalid_amount", order.ErrInvalidRefundAmount)
		return 0, false
	}
	detail, err := h.orderDomain.GetOrder(c.Request.Context(), orderID, capability)
	if err != nil {
		handleOrderError(c, err)
		return 0, false
	}
	amount, err := money.ParseMinor(raw, detail.Order.Currency)
	if err != nil {
		badRequest(c, "invalid_amount", err)
		return 0, false
	}
	return amount, true
}

// Compile-time check
var _ inbound.OrderHttpPort = (*orderHandler)(nil)
