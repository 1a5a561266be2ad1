package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationIntent is what a confirmation token was issued for.
type ConfirmationIntent struct {
	OrderID   int64     `json:"order_id"`
	RefundID  int64     `json:"refund_id,omitempty"`
	Action    Action    `json:"action"`
	Amount    int64     `json:"amount,omitempty"`
	UserID    uuid.UUID `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Matches reports whether a confirmed action is the one the token was
// issued for.
func (i *ConfirmationIntent) Matches(action Action, req *ConfirmedAction, userID uuid.UUID) bool {
	if i.Action != action || i.OrderID != req.OrderID || i.RefundID != req.RefundID || i.UserID != userID {
		return false
	}
	if action == ActionRefund && i.Amount != req.Amount {
		return false
	}
	return true
}
