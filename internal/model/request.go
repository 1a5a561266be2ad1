package model

import "github.com/google/uuid"

// PaginationRequest defines pagination parameters.
type PaginationRequest struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// DefaultPagination applies default pagination values. Page sizes above
// maxSize are clamped to it.
func (p *PaginationRequest) DefaultPagination(defaultSize, maxSize int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
}

// Offset returns the offset for database queries.
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ListOrdersRequest is the query string of the order listing.
type ListOrdersRequest struct {
	Status      string `form:"status"`
	SearchField string `form:"search_field"`
	Query       string `form:"q"`
	CourseID    string `form:"course_id"`
	PaginationRequest
}

// ListQuery is the parsed order listing query.
type ListQuery struct {
	Filter      StatusFilter
	SearchField SearchField
	SearchValue string
	CourseID    *uuid.UUID
	PaginationRequest
}

// CreateOrderRequest records a checkout order before the card is sent to the
// gateway. Amount is a decimal string in major units.
type CreateOrderRequest struct {
	CourseID     uuid.UUID     `json:"course_id" binding:"required"`
	Method       PaymentMethod `json:"method" binding:"required,oneof=card echeck"`
	Amount       string        `json:"amount" binding:"required"`
	Currency     string        `json:"currency" binding:"required,len=3"`
	MaskedDetail string        `json:"masked_detail" binding:"omitempty,numeric,max=4"`
	PayerName    string        `json:"payer_name"`
}

// CreateOrderInput is the domain input for a checkout order.
type CreateOrderInput struct {
	CourseID     uuid.UUID
	Method       PaymentMethod
	Amount       int64
	Currency     string
	MaskedDetail string
	PayerName    string
}

// RecordAuthorizationRequest carries the outcome of the checkout
// authorization call.
type RecordAuthorizationRequest struct {
	Result  ResultCode `json:"result" binding:"required,oneof=APPROVED REVIEW DECLINED ERROR"`
	TransID string     `json:"trans_id"`
	Message string     `json:"message"`
}

// ActionTicketRequest asks for a confirmation token for an action.
type ActionTicketRequest struct {
	Action   string `json:"action" binding:"required"`
	Amount   string `json:"amount"`
	RefundID int64  `json:"refund_id"`
}

// ActionIntent is the domain form of an action request.
type ActionIntent struct {
	OrderID  int64
	RefundID int64
	Action   Action
	Amount   int64
}

// ConfirmRequest confirms a capture or delete.
type ConfirmRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

// ConfirmRefundRequest confirms a refund.
type ConfirmRefundRequest struct {
	Token        string `json:"token" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	RevokeAccess bool   `json:"revoke_access"`
}

// ConfirmVoidRequest confirms a void of the order or of one of its refunds.
type ConfirmVoidRequest struct {
	Token    string `json:"token" binding:"required"`
	RefundID int64  `json:"refund_id"`
}

// ConfirmedAction is the second, token-carrying step of an action.
type ConfirmedAction struct {
	OrderID      int64
	RefundID     int64
	Amount       int64
	RevokeAccess bool
	Token        string
}
