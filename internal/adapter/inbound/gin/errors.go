package gin

import (
	"errors"
	"net/http"

	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/shared/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Outcomes recorded per order action.
const (
	outcomeCommitted      = "committed"
	outcomeRejected       = "rejected"
	outcomeDeclined       = "declined"
	outcomeGatewayError   = "gateway_error"
	outcomeReconciliation = "reconciliation"
	outcomeFailed         = "failed"
)

// actionOutcome classifies the result of an order action for metrics.
func actionOutcome(err error) string {
	var gwErr *order.GatewayError
	switch {
	case err == nil:
		return outcomeCommitted
	case order.IsReconciliation(err):
		return outcomeReconciliation
	case errors.As(err, &gwErr):
		if gwErr.Declined() {
			return outcomeDeclined
		}
		return outcomeGatewayError
	case order.IsValidation(err), order.IsConsistency(err),
		errors.Is(err, order.ErrOrderNotFound), errors.Is(err, order.ErrRefundNotFound):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// handleOrderError maps domain errors to HTTP responses.
func handleOrderError(c *gin.Context, err error) {
	var (
		validationErr  *order.ValidationError
		gatewayErr     *order.GatewayError
		consistencyErr *order.ConsistencyError
		reconErr       *order.ReconciliationError
	)

	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Code: "order_not_found", Message: "Order not found"})

	case errors.Is(err, order.ErrRefundNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Code: "refund_not_found", Message: "Refund not found"})

	case errors.Is(err, order.ErrOrderAlreadyAuthorized):
		c.JSON(http.StatusConflict, model.ErrorResponse{Code: "already_authorized", Message: err.Error()})

	case errors.As(err, &validationErr):
		status := http.StatusBadRequest
		if errors.Is(err, order.ErrCapabilityRequired) {
			status = http.StatusForbidden
		}
		c.JSON(status, model.ErrorResponse{
			Code:    validationCode(validationErr.Err),
			Message: err.Error(),
		})

	case errors.As(err, &consistencyErr):
		c.JSON(http.StatusConflict, model.ErrorResponse{
			Code:    "action_not_allowed",
			Message: err.Error(),
			Details: consistencyErr.Current,
		})

	case errors.As(err, &reconErr):
		// The gateway moved money that is not recorded here.
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    "reconciliation_required",
			Message: "The payment gateway accepted the action but it could not be recorded. Support has been alerted.",
			Details: gin.H{
				"order_id":         reconErr.OrderID,
				"refund_id":        reconErr.RefundID,
				"gateway_trans_id": reconErr.GatewayTransID,
			},
		})

	case errors.As(err, &gatewayErr):
		status := http.StatusBadGateway
		code := "gateway_error"
		switch {
		case gatewayErr.Declined():
			status, code = http.StatusPaymentRequired, "gateway_declined"
		case errors.Is(err, outbound.ErrGatewayUnavailable):
			status, code = http.StatusServiceUnavailable, "gateway_unavailable"
		case errors.Is(err, outbound.ErrGatewayTimeout):
			status, code = http.StatusGatewayTimeout, "gateway_timeout"
		}
		c.JSON(status, model.ErrorResponse{
			Code:    code,
			Message: gatewayErr.Message,
			Details: gin.H{"gateway": gatewayErr.Gateway, "result": gatewayErr.Code},
		})

	default:
		logger.FromContext(c.Request.Context()).Error("order request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Code: "internal_error", Message: "internal error"})
	}
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, order.ErrCapabilityRequired):
		return "forbidden"
	case errors.Is(err, order.ErrConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, order.ErrInvalidConfirmation):
		return "invalid_confirmation"
	case errors.Is(err, order.ErrInvalidRefundAmount), errors.Is(err, order.ErrRefundExceedsBalance):
		return "invalid_amount"
	case errors.Is(err, order.ErrInvalidSearch):
		return "invalid_search"
	default:
		return "invalid_input"
	}
}
