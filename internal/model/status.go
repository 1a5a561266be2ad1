package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Record is the view of an order or refund that status resolution works on.
type Record struct {
	Status       RawStatus
	TransID      string
	Method       PaymentMethod
	MaskedDetail string
	CourseID     uuid.UUID
	CreatedAt    time.Time
	SettleTime   *time.Time
	// SubOrder marks refund rows.
	SubOrder bool
}

// HasTransaction reports whether the record carries a gateway transaction id.
func (r Record) HasTransaction() bool {
	return hasTransaction(r.TransID)
}

// DisplayStatus is the status shown to users.
type DisplayStatus int

const (
	DisplayNew DisplayStatus = iota
	DisplayTested
	DisplayAuthorizedPendingCapture
	DisplaySettled
	DisplayCapturedPendingSettle
	DisplayRefunded
	DisplayCancelled
	DisplayExpired
	DisplayUnderReview
	DisplayApprovedReview
	DisplayReviewFailed

	displayStatusCount
)

var displayStatusNames = [...]string{
	DisplayNew:                      "new",
	DisplayTested:                   "tested",
	DisplayAuthorizedPendingCapture: "authorizedpendingcapture",
	DisplaySettled:                  "settled",
	DisplayCapturedPendingSettle:    "capturedpendingsettle",
	DisplayRefunded:                 "refunded",
	DisplayCancelled:                "cancelled",
	DisplayExpired:                  "expired",
	DisplayUnderReview:              "underreview",
	DisplayApprovedReview:           "approvedreview",
	DisplayReviewFailed:             "reviewfailed",
}

var displayStatusLabels = [...]string{
	DisplayNew:                      "New",
	DisplayTested:                   "Tested",
	DisplayAuthorizedPendingCapture: "Authorized / Pending capture",
	DisplaySettled:                  "Settled",
	DisplayCapturedPendingSettle:    "Captured / Pending settlement",
	DisplayRefunded:                 "Refunded",
	DisplayCancelled:                "Cancelled",
	DisplayExpired:                  "Expired",
	DisplayUnderReview:              "Under review",
	DisplayApprovedReview:           "Approved review",
	DisplayReviewFailed:             "Review failed",
}

// Both tables must cover every display status; a missing entry fails to compile.
var (
	_ = [1]struct{}{}[len(displayStatusNames)-int(displayStatusCount)]
	_ = [1]struct{}{}[len(displayStatusLabels)-int(displayStatusCount)]
)

// String returns the machine name of the status.
func (s DisplayStatus) String() string {
	if s < 0 || s >= displayStatusCount {
		return fmt.Sprintf("DisplayStatus(%d)", int(s))
	}
	return displayStatusNames[s]
}

// Label returns the human readable label.
func (s DisplayStatus) Label() string {
	if s < 0 || s >= displayStatusCount {
		return ""
	}
	return displayStatusLabels[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s DisplayStatus) MarshalText() ([]byte, error) {
	if s < 0 || s >= displayStatusCount {
		return nil, fmt.Errorf("unknown display status %d", int(s))
	}
	return []byte(s.String()), nil
}

// Action is a follow-up operation on an order or refund.
type Action int

const (
	ActionCapture Action = iota
	ActionRefund
	ActionVoid
	ActionDelete

	actionCount
)

var actionNames = [...]string{
	ActionCapture: "capture",
	ActionRefund:  "refund",
	ActionVoid:    "void",
	ActionDelete:  "delete",
}

var actionLabels = [...]string{
	ActionCapture: "Capture",
	ActionRefund:  "Refund",
	ActionVoid:    "Void",
	ActionDelete:  "Delete",
}

var (
	_ = [1]struct{}{}[len(actionNames)-int(actionCount)]
	_ = [1]struct{}{}[len(actionLabels)-int(actionCount)]
)

// AllActions returns every action in display order.
func AllActions() []Action {
	return []Action{ActionCapture, ActionRefund, ActionVoid, ActionDelete}
}

// ParseAction converts a machine name into an Action.
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// Label returns the human readable label.
func (a Action) Label() string {
	if a < 0 || a >= actionCount {
		return ""
	}
	return actionLabels[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if a < 0 || a >= actionCount {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ActionSet is an ordered set of actions.
type ActionSet []Action

// NewActionSet returns a sorted set without duplicates.
func NewActionSet(actions ...Action) ActionSet {
	set := make(ActionSet, 0, len(actions))
	for _, a := range actions {
		if !set.Contains(a) {
			set = append(set, a)
		}
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Contains reports whether a is in the set.
func (s ActionSet) Contains(a Action) bool {
	for _, x := range s {
		if x == a {
			return true
		}
	}
	return false
}

// Intersect returns the actions present in both sets.
func (s ActionSet) Intersect(other ActionSet) ActionSet {
	out := ActionSet{}
	for _, a := range s {
		if other.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}

// Resolution is the display status and allowed actions for a record.
type Resolution struct {
	Status  DisplayStatus `json:"status"`
	Actions ActionSet     `json:"actions"`
}

// Allows reports whether the action is currently allowed.
func (r Resolution) Allows(a Action) bool {
	return r.Actions.Contains(a)
}
