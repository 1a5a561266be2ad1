package model

import (
	"time"

	"github.com/google/uuid"
)

// RawStatus is the status code persisted on orders and refunds.
type RawStatus string

const (
	StatusNew            RawStatus = "new"
	StatusAuth           RawStatus = "auth"
	StatusAuthCapture    RawStatus = "authcapture"
	StatusCredit         RawStatus = "credit"
	StatusVoid           RawStatus = "void"
	StatusExpire         RawStatus = "expire"
	StatusUnderReview    RawStatus = "underreview"
	StatusApprovedReview RawStatus = "approvedreview"
	StatusReviewFailed   RawStatus = "reviewfailed"
)

// AllRawStatuses returns the closed set of raw status codes.
func AllRawStatuses() []RawStatus {
	return []RawStatus{
		StatusNew,
		StatusAuth,
		StatusAuthCapture,
		StatusCredit,
		StatusVoid,
		StatusExpire,
		StatusUnderReview,
		StatusApprovedReview,
		StatusReviewFailed,
	}
}

// IsValid reports whether s belongs to the closed status set.
func (s RawStatus) IsValid() bool {
	for _, known := range AllRawStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsRefundStatus reports whether s may appear on a refund row.
func (s RawStatus) IsRefundStatus() bool {
	return s == StatusCredit || s == StatusVoid
}

// PaymentMethod is the instrument an order was paid with.
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodECheck PaymentMethod = "echeck"
)

// IsValid reports whether m is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	return m == MethodCard || m == MethodECheck
}

// Order is a payment order placed for access to a course.
type Order struct {
	ID           int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	CourseID     uuid.UUID     `json:"course_id" gorm:"type:uuid;not null;index"`
	PayerID      uuid.UUID     `json:"payer_id" gorm:"type:uuid;not null;index"`
	PayerName    string        `json:"payer_name" gorm:"not null;default:''"`
	Method       PaymentMethod `json:"method" gorm:"not null"`
	Status       RawStatus     `json:"status" gorm:"not null;index"`
	TransID      string        `json:"trans_id" gorm:"not null;default:'';index"`
	Amount       int64         `json:"amount" gorm:"not null"`
	Currency     string        `json:"currency" gorm:"not null;default:'usd'"`
	MaskedDetail string        `json:"masked_detail" gorm:"not null;default:'';index"`
	SettleTime   *time.Time    `json:"settle_time,omitempty"`
	CreatedAt    time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Refunds []*Refund `json:"-" gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for Order.
func (Order) TableName() string {
	return "orders"
}

// HasTransaction reports whether the gateway ever returned a transaction id
// for this order. Orders without one were never authorized.
func (o *Order) HasTransaction() bool {
	return hasTransaction(o.TransID)
}

// Record builds the resolver input for the order.
func (o *Order) Record() Record {
	return Record{
		Status:       o.Status,
		TransID:      o.TransID,
		Method:       o.Method,
		MaskedDetail: o.MaskedDetail,
		CourseID:     o.CourseID,
		CreatedAt:    o.CreatedAt,
		SettleTime:   o.SettleTime,
	}
}

// Refund is a credit issued against a captured order.
type Refund struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID    int64      `json:"order_id" gorm:"not null;index"`
	TransID    string     `json:"trans_id" gorm:"not null;default:''"`
	Status     RawStatus  `json:"status" gorm:"not null"`
	Amount     int64      `json:"amount" gorm:"not null"`
	SettleTime *time.Time `json:"settle_time,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the table name for Refund.
func (Refund) TableName() string {
	return "refunds"
}

// HasTransaction reports whether the refund carries a gateway transaction id.
func (r *Refund) HasTransaction() bool {
	return hasTransaction(r.TransID)
}

// Record builds the resolver input for a refund. Method, masked detail and
// course come from the parent order.
func (r *Refund) Record(parent *Order) Record {
	return Record{
		Status:       r.Status,
		TransID:      r.TransID,
		Method:       parent.Method,
		MaskedDetail: parent.MaskedDetail,
		CourseID:     parent.CourseID,
		CreatedAt:    r.CreatedAt,
		SettleTime:   r.SettleTime,
		SubOrder:     true,
	}
}

func hasTransaction(transID string) bool {
	return transID != "" && transID != "0"
}
