package order

import (
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/utils/cutoff"
)

// Policy defaults.
const (
	DefaultExpiryWindow  = 30 * 24 * time.Hour
	DefaultNewOrderGrace = 2 * time.Minute
)

// PolicyConfig configures settlement and expiry rules.
type PolicyConfig struct {
	// ExpiryWindow is how long the gateway holds an uncaptured authorization.
	ExpiryWindow time.Duration
	// NewOrderGrace is how long an order without a transaction is shown as new.
	NewOrderGrace time.Duration
	// Cutoff is the gateway's daily settlement cutoff.
	Cutoff cutoff.Schedule
	// ReviewFailedDeletable allows deleting review-failed orders that carry a
	// gateway transaction id.
	ReviewFailedDeletable bool
}

// Policy holds the time-based settlement and expiry predicates.
type Policy struct {
	expiryWindow          time.Duration
	newOrderGrace         time.Duration
	schedule              cutoff.Schedule
	reviewFailedDeletable bool
}

// NewPolicy creates a policy, filling zero durations with defaults.
func NewPolicy(cfg PolicyConfig) *Policy {
	p := &Policy{
		expiryWindow:          cfg.ExpiryWindow,
		newOrderGrace:         cfg.NewOrderGrace,
		schedule:              cfg.Cutoff,
		reviewFailedDeletable: cfg.ReviewFailedDeletable,
	}
	if p.expiryWindow <= 0 {
		p.expiryWindow = DefaultExpiryWindow
	}
	if p.newOrderGrace <= 0 {
		p.newOrderGrace = DefaultNewOrderGrace
	}
	return p
}

// Cutoff returns the daily settlement cutoff for batch jobs.
func (p *Policy) Cutoff() cutoff.Schedule {
	return p.schedule
}

// SettleTime returns the batch cutoff a transaction made at t settles in.
func (p *Policy) SettleTime(t time.Time) time.Time {
	return p.schedule.Next(t)
}

// IsNew reports whether a record without a transaction is still within the
// checkout grace period.
func (p *Policy) IsNew(rec model.Record, now time.Time) bool {
	return now.Sub(rec.CreatedAt) < p.newOrderGrace
}

// Settled reports whether a capture or credit has left the batch window.
func (p *Policy) Settled(rec model.Record, now time.Time) bool {
	if rec.Status != model.StatusAuthCapture && rec.Status != model.StatusCredit {
		return false
	}
	return rec.SettleTime != nil && rec.SettleTime.Before(now)
}

// Expired reports whether an authorization has outlived the hold window,
// measured from its creation.
func (p *Policy) Expired(rec model.Record, now time.Time) bool {
	switch rec.Status {
	case model.StatusExpire:
		return true
	case model.StatusAuth:
		return now.Sub(rec.CreatedAt) >= p.expiryWindow
	default:
		return false
	}
}

// ReviewFailedDeletable reports whether a review-failed order carrying a
// transaction id may be deleted.
func (p *Policy) ReviewFailedDeletable() bool {
	return p.reviewFailedDeletable
}
