package order

import (
	"strconv"
	"time"

	"github.com/coursepay/server/internal/infra/events"
	"github.com/coursepay/server/internal/model"
	"github.com/google/uuid"
)

// Event types published after a committed action.
const (
	EventOrderCaptured    = "OrderCaptured"
	EventOrderUnderReview = "OrderUnderReview"
	EventOrderRefunded    = "OrderRefunded"
	EventOrderVoided      = "OrderVoided"
	EventRefundVoided     = "RefundVoided"
	EventOrderDeleted     = "OrderDeleted"
	EventOrderExpired     = "OrderExpired"
)

// OrderEvent is the payload of every order lifecycle event.
type OrderEvent struct {
	events.BaseEvent
	OrderID  int64     `json:"order_id"`
	RefundID int64     `json:"refund_id,omitempty"`
	CourseID uuid.UUID `json:"course_id"`
	PayerID  uuid.UUID `json:"payer_id"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	TransID  string    `json:"trans_id,omitempty"`
}

func newOrderEvent(eventType string, o *model.Order, at time.Time) *OrderEvent {
	return &OrderEvent{
		BaseEvent: events.NewBaseEvent(eventType, strconv.FormatInt(o.ID, 10), at),
		OrderID:   o.ID,
		CourseID:  o.CourseID,
		PayerID:   o.PayerID,
		Amount:    o.Amount,
		Currency:  o.Currency,
		TransID:   o.TransID,
	}
}

func newRefundEvent(eventType string, o *model.Order, r *model.Refund, at time.Time) *OrderEvent {
	e := newOrderEvent(eventType, o, at)
	e.RefundID = r.ID
	e.Amount = r.Amount
	e.TransID = r.TransID
	return e
}
