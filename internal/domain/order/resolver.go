package order

import (
	"time"

	"github.com/coursepay/server/internal/model"
)

var (
	noActions      = model.NewActionSet()
	subOrderAction = model.NewActionSet(model.ActionVoid)
)

// Resolver maps an order or refund to its display status and the actions a
// caller may take on it. It does no I/O.
type Resolver struct {
	policy *Policy
}

// NewResolver creates a resolver backed by the given policy.
func NewResolver(policy *Policy) *Resolver {
	return &Resolver{policy: policy}
}

// Resolve returns the display status and allowed actions. Callers without
// manage-payments on the record's course get no actions. Refund rows can
// only ever be voided.
func (r *Resolver) Resolve(rec model.Record, now time.Time, capability model.Capability) model.Resolution {
	status, actions := r.decide(rec, now)
	if !capability.CanManage(rec.CourseID) {
		actions = noActions
	}
	if rec.SubOrder {
		actions = actions.Intersect(subOrderAction)
	}
	return model.Resolution{Status: status, Actions: actions}
}

func (r *Resolver) decide(rec model.Record, now time.Time) (model.DisplayStatus, model.ActionSet) {
	if !rec.HasTransaction() {
		if r.policy.IsNew(rec, now) {
			return model.DisplayNew, noActions
		}
		return model.DisplayTested, model.NewActionSet(model.ActionDelete)
	}

	switch rec.Status {
	case model.StatusNew:
		return model.DisplayNew, noActions

	case model.StatusAuth:
		if r.policy.Expired(rec, now) {
			return model.DisplayExpired, model.NewActionSet(model.ActionDelete)
		}
		return model.DisplayAuthorizedPendingCapture, model.NewActionSet(model.ActionCapture, model.ActionVoid)

	case model.StatusAuthCapture:
		if r.policy.Settled(rec, now) {
			if refundable(rec) {
				return model.DisplaySettled, model.NewActionSet(model.ActionRefund)
			}
			return model.DisplaySettled, noActions
		}
		return model.DisplayCapturedPendingSettle, cardVoid(rec)

	case model.StatusCredit:
		if r.policy.Settled(rec, now) {
			return model.DisplaySettled, noActions
		}
		return model.DisplayRefunded, cardVoid(rec)

	case model.StatusVoid:
		return model.DisplayCancelled, noActions

	case model.StatusExpire:
		return model.DisplayExpired, model.NewActionSet(model.ActionDelete)

	case model.StatusUnderReview:
		return model.DisplayUnderReview, noActions

	case model.StatusApprovedReview:
		return model.DisplayApprovedReview, noActions

	case model.StatusReviewFailed:
		if r.policy.ReviewFailedDeletable() {
			return model.DisplayReviewFailed, model.NewActionSet(model.ActionDelete)
		}
		return model.DisplayReviewFailed, noActions
	}

	// Unknown codes only come from rows written outside this service. Show
	// them as held for review and allow nothing.
	return model.DisplayUnderReview, noActions
}

// refundable reports whether a settled capture can be credited back: cards
// always, eChecks only when the bank account detail was kept.
func refundable(rec model.Record) bool {
	switch rec.Method {
	case model.MethodCard:
		return true
	case model.MethodECheck:
		return rec.MaskedDetail != ""
	default:
		return false
	}
}

func cardVoid(rec model.Record) model.ActionSet {
	if rec.Method == model.MethodCard {
		return model.NewActionSet(model.ActionVoid)
	}
	return noActions
}
