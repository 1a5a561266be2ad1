package model

import (
	"time"

	"github.com/google/uuid"
)

// PaginatedResponse defines paginated response structure.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginatedResponse creates a new paginated response.
func NewPaginatedResponse[T any](data []T, total int64, page, pageSize int) *PaginatedResponse[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}

	return &PaginatedResponse[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// ErrorResponse defines error response structure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OrderView is an order together with its resolved status.
type OrderView struct {
	ID           int64         `json:"id"`
	CourseID     uuid.UUID     `json:"course_id"`
	PayerID      uuid.UUID     `json:"payer_id"`
	PayerName    string        `json:"payer_name"`
	Method       PaymentMethod `json:"method"`
	RawStatus    RawStatus     `json:"raw_status"`
	Status       DisplayStatus `json:"status"`
	StatusLabel  string        `json:"status_label"`
	Actions      ActionSet     `json:"actions"`
	TransID      string        `json:"trans_id"`
	Amount       int64         `json:"amount"`
	Currency     string        `json:"currency"`
	MaskedDetail string        `json:"masked_detail"`
	CreatedAt    time.Time     `json:"created_at"`
	SettleTime   *time.Time    `json:"settle_time,omitempty"`
}

// NewOrderView builds the view of an order.
func NewOrderView(o *Order, res Resolution) OrderView {
	return OrderView{
		ID:           o.ID,
		CourseID:     o.CourseID,
		PayerID:      o.PayerID,
		PayerName:    o.PayerName,
		Method:       o.Method,
		RawStatus:    o.Status,
		Status:       res.Status,
		StatusLabel:  res.Status.Label(),
		Actions:      res.Actions,
		TransID:      o.TransID,
		Amount:       o.Amount,
		Currency:     o.Currency,
		MaskedDetail: o.MaskedDetail,
		CreatedAt:    o.CreatedAt,
		SettleTime:   o.SettleTime,
	}
}

// RefundView is a refund together with its resolved status.
type RefundView struct {
	ID          int64         `json:"id"`
	OrderID     int64         `json:"order_id"`
	TransID     string        `json:"trans_id"`
	RawStatus   RawStatus     `json:"raw_status"`
	Status      DisplayStatus `json:"status"`
	StatusLabel string        `json:"status_label"`
	Actions     ActionSet     `json:"actions"`
	Amount      int64         `json:"amount"`
	CreatedAt   time.Time     `json:"created_at"`
	SettleTime  *time.Time    `json:"settle_time,omitempty"`
}

// NewRefundView builds the view of a refund.
func NewRefundView(r *Refund, res Resolution) RefundView {
	return RefundView{
		ID:          r.ID,
		OrderID:     r.OrderID,
		TransID:     r.TransID,
		RawStatus:   r.Status,
		Status:      res.Status,
		StatusLabel: res.Status.Label(),
		Actions:     res.Actions,
		Amount:      r.Amount,
		CreatedAt:   r.CreatedAt,
		SettleTime:  r.SettleTime,
	}
}

// OrderDetail is an order with its refund history.
type OrderDetail struct {
	Order      OrderView    `json:"order"`
	Refunds    []RefundView `json:"refunds"`
	Refundable int64        `json:"refundable"`
}

// ConfirmationTicket is returned when an action is requested. The token must
// be sent back to execute the action.
type ConfirmationTicket struct {
	Token     string     `json:"token"`
	OrderID   int64      `json:"order_id"`
	RefundID  int64      `json:"refund_id,omitempty"`
	Action    Action     `json:"action"`
	Amount    int64      `json:"amount,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	Current   Resolution `json:"current"`
}

// ActionResult describes a committed action.
type ActionResult struct {
	OrderID  int64          `json:"order_id"`
	RefundID int64          `json:"refund_id,omitempty"`
	Action   Action         `json:"action"`
	Status   *DisplayStatus `json:"status,omitempty"`
	TransID  string         `json:"trans_id,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// ReconcileReport summarises a reconciliation pass.
type ReconcileReport struct {
	Checked       int `json:"checked"`
	Settled       int `json:"settled"`
	RefundSettled int `json:"refund_settled"`
	Expired       int `json:"expired"`
	Failures      int `json:"failures"`
}
