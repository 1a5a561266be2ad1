package model

import (
	"fmt"

	"github.com/google/uuid"
)

type filterKind int

const (
	filterAny filterKind = iota
	filterSingle
	filterPending
)

// StatusFilter selects orders by raw status. It is either AnyStatus,
// Single(status) or PendingGroup.
type StatusFilter struct {
	kind   filterKind
	status RawStatus
}

// AnyStatus matches every order.
func AnyStatus() StatusFilter {
	return StatusFilter{kind: filterAny}
}

// Single matches orders in exactly one raw status.
func Single(status RawStatus) StatusFilter {
	return StatusFilter{kind: filterSingle, status: status}
}

// PendingGroup matches orders still waiting on a capture or review decision.
func PendingGroup() StatusFilter {
	return StatusFilter{kind: filterPending}
}

// Statuses returns the raw statuses matched by the filter. A nil slice means
// no restriction.
func (f StatusFilter) Statuses() []RawStatus {
	switch f.kind {
	case filterAny:
		return nil
	case filterSingle:
		return []RawStatus{f.status}
	case filterPending:
		return []RawStatus{StatusAuth, StatusUnderReview, StatusApprovedReview}
	default:
		panic(fmt.Sprintf("unhandled status filter kind %d", f.kind))
	}
}

// Matches reports whether status is selected by the filter.
func (f StatusFilter) Matches(status RawStatus) bool {
	statuses := f.Statuses()
	if statuses == nil {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// String returns the query parameter form of the filter.
func (f StatusFilter) String() string {
	switch f.kind {
	case filterSingle:
		return string(f.status)
	case filterPending:
		return "pending"
	default:
		return "all"
	}
}

// ParseStatusFilter parses "all", "pending" or a raw status.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch s {
	case "", "all":
		return AnyStatus(), nil
	case "pending":
		return PendingGroup(), nil
	}
	status := RawStatus(s)
	if !status.IsValid() {
		return StatusFilter{}, fmt.Errorf("unknown status filter %q", s)
	}
	return Single(status), nil
}

// SearchField selects the column a search value is matched against.
type SearchField string

const (
	SearchNone     SearchField = ""
	SearchOrderID  SearchField = "order_id"
	SearchTransID  SearchField = "trans_id"
	SearchLastFour SearchField = "last_four"
)

// OrderScope restricts a query to the orders a caller may see.
// A nil scope means no restriction.
type OrderScope struct {
	PayerID uuid.UUID
	Courses []uuid.UUID
}

// OrderFilter is the query passed to the order store.
type OrderFilter struct {
	Statuses []RawStatus
	OrderID  *int64
	TransID  string
	LastFour string
	CourseID *uuid.UUID
	Scope    *OrderScope
	Offset   int
	Limit    int
}
