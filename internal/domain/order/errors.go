package order

import (
	"errors"
	"fmt"

	"github.com/coursepay/server/internal/model"
)

// Domain errors for order.
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrRefundNotFound         = errors.New("refund not found")
	ErrInvalidOrder           = errors.New("invalid order")
	ErrOrderAlreadyAuthorized = errors.New("order already has a gateway transaction")
	ErrCapabilityRequired     = errors.New("manage payments capability required")
	ErrConfirmationRequired   = errors.New("confirmation required")
	ErrInvalidConfirmation    = errors.New("invalid confirmation token")
	ErrInvalidRefundAmount    = errors.New("refund amount must be positive")
	ErrRefundExceedsBalance   = errors.New("refund exceeds remaining balance")
	ErrInvalidSearch          = errors.New("invalid search")
)

// ValidationError is returned for requests rejected before any gateway call.
type ValidationError struct {
	Err    error
	Detail string
}

func newValidationError(err error, detail string) *ValidationError {
	return &ValidationError{Err: err, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Detail)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// GatewayError is returned when the gateway declined or could not be reached.
// Message is the gateway's own text.
type GatewayError struct {
	Gateway string
	Code    model.ResultCode
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway %s: %s", e.Gateway, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Gateway, e.Code)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Declined reports whether the gateway answered and refused the call.
func (e *GatewayError) Declined() bool {
	return e.Err == nil && e.Code == model.ResultDeclined
}

// ConsistencyError is returned when the requested action is no longer allowed.
type ConsistencyError struct {
	Action  model.Action
	Current model.Resolution
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("action %s is not allowed while the order is %s", e.Action, e.Current.Status)
}

// ReconciliationError is returned when the gateway approved a mutation but the
// local commit failed.
type ReconciliationError struct {
	OrderID        int64
	RefundID       int64
	Action         model.Action
	GatewayTransID string
	Err            error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("gateway approved %s on order %d (transaction %q) but it was not recorded: %v",
		e.Action, e.OrderID, e.GatewayTransID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsGateway reports whether err is a GatewayError.
func IsGateway(err error) bool {
	var target *GatewayError
	return errors.As(err, &target)
}

// IsConsistency reports whether err is a ConsistencyError.
func IsConsistency(err error) bool {
	var target *ConsistencyError
	return errors.As(err, &target)
}

// IsReconciliation reports whether err is a ReconciliationError.
func IsReconciliation(err error) bool {
	var target *ReconciliationError
	return errors.As(err, &target)
}
