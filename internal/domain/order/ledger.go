package order

import (
	"fmt"
	"time"

	"github.com/coursepay/server/internal/model"
)

// Ledger tracks the refunds issued against an order.
type Ledger struct {
	resolver *Resolver
}

// NewLedger creates a ledger that resolves refund rows with resolver.
func NewLedger(resolver *Resolver) *Ledger {
	return &Ledger{resolver: resolver}
}

// Credited returns the sum of refunds in credit status.
func (l *Ledger) Credited(refunds []*model.Refund) int64 {
	var total int64
	for _, r := range refunds {
		if r.Status == model.StatusCredit {
			total += r.Amount
		}
	}
	return total
}

// Refundable returns the amount that can still be credited back.
func (l *Ledger) Refundable(order *model.Order, refunds []*model.Refund) int64 {
	remaining := order.Amount - l.Credited(refunds)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CheckRefund validates a refund amount against the remaining balance.
func (l *Ledger) CheckRefund(order *model.Order, refunds []*model.Refund, amount int64) error {
	if amount <= 0 {
		return newValidationError(ErrInvalidRefundAmount, "")
	}
	if remaining := l.Refundable(order, refunds); amount > remaining {
		return newValidationError(ErrRefundExceedsBalance,
			fmt.Sprintf("requested %d, remaining %d", amount, remaining))
	}
	return nil
}

// History resolves every refund of the order for display.
func (l *Ledger) History(order *model.Order, refunds []*model.Refund, now time.Time, capability model.Capability) []model.RefundView {
	views := make([]model.RefundView, 0, len(refunds))
	for _, r := range refunds {
		views = append(views, model.NewRefundView(r, l.resolver.Resolve(r.Record(order), now, capability)))
	}
	return views
}
