package model

import "time"

// GatewayAction is a mutating call sent to the payment gateway.
type GatewayAction string

const (
	GatewayPriorAuthCapture GatewayAction = "PRIOR_AUTH_CAPTURE"
	GatewayCredit           GatewayAction = "CREDIT"
	GatewayVoid             GatewayAction = "VOID"
)

// ResultCode is the gateway's verdict on a call.
type ResultCode string

const (
	ResultApproved ResultCode = "APPROVED"
	ResultReview   ResultCode = "REVIEW"
	ResultDeclined ResultCode = "DECLINED"
	ResultError    ResultCode = "ERROR"
)

// GatewayRequest is a single mutating gateway call.
type GatewayRequest struct {
	Action       GatewayAction
	OrderID      int64
	RefundID     int64
	TransID      string
	Amount       int64
	Currency     string
	Method       PaymentMethod
	MaskedDetail string
	Extra        map[string]string
}

// GatewayResult is the parsed gateway response.
type GatewayResult struct {
	Code    ResultCode
	Message string
	TransID string
	// SettlesAt is set when the gateway reports the batch the transaction
	// will settle in.
	SettlesAt *time.Time
	// Raw holds the response fields as received, for incident records.
	Raw []string
}

// Approved reports whether the gateway approved the call.
func (r *GatewayResult) Approved() bool {
	return r != nil && r.Code == ResultApproved
}

// GatewayTransaction identifies a transaction for read-only gateway queries.
type GatewayTransaction struct {
	OrderID    int64
	RefundID   int64
	TransID    string
	Status     RawStatus
	Method     PaymentMethod
	CreatedAt  time.Time
	SettleTime *time.Time
}

// Transaction returns the gateway query view of the order.
func (o *Order) Transaction() *GatewayTransaction {
	return &GatewayTransaction{
		OrderID:    o.ID,
		TransID:    o.TransID,
		Status:     o.Status,
		Method:     o.Method,
		CreatedAt:  o.CreatedAt,
		SettleTime: o.SettleTime,
	}
}

// Transaction returns the gateway query view of the refund.
func (r *Refund) Transaction(parent *Order) *GatewayTransaction {
	return &GatewayTransaction{
		OrderID:    r.OrderID,
		RefundID:   r.ID,
		TransID:    r.TransID,
		Status:     r.Status,
		Method:     parent.Method,
		CreatedAt:  r.CreatedAt,
		SettleTime: r.SettleTime,
	}
}
