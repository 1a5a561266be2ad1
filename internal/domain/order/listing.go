package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coursepay/server/internal/model"
)

// PadLastFour normalises a last-four search value: up to four digits,
// left-padded with zeros.
func PadLastFour(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 4 {
		return "", errors.New("last four must be 1 to 4 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", errors.New("last four must be 1 to 4 digits")
		}
	}
	return strings.Repeat("0", 4-len(s)) + s, nil
}

func (d *orderDomain) ListOrders(ctx context.Context, query *model.ListQuery, capability model.Capability) (*model.PaginatedResponse[model.OrderView], error) {
	query.DefaultPagination(d.cfg.DefaultPageSize, d.cfg.MaxPageSize)

	filter, err := buildFilter(query, capability)
	if err != nil {
		return nil, err
	}

	orders, total, err := d.orderDB.FindByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	now := d.now()
	views := make([]model.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, model.NewOrderView(o, d.resolver.Resolve(o.Record(), now, capability)))
	}
	return model.NewPaginatedResponse(views, total, query.Page, query.PageSize), nil
}

func buildFilter(query *model.ListQuery, capability model.Capability) (*model.OrderFilter, error) {
	filter := &model.OrderFilter{
		Statuses: query.Filter.Statuses(),
		CourseID: query.CourseID,
		Scope:    capability.Scope(),
		Offset:   query.Offset(),
		Limit:    query.PageSize,
	}

	value := strings.TrimSpace(query.SearchValue)
	switch query.SearchField {
	case model.SearchNone:
		if value != "" {
			return nil, newValidationError(ErrInvalidSearch, "search field required")
		}
	case model.SearchOrderID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			return nil, newValidationError(ErrInvalidSearch, "order id must be a positive integer")
		}
		filter.OrderID = &id
	case model.SearchTransID:
		if value == "" {
			return nil, newValidationError(ErrInvalidSearch, "transaction id required")
		}
		filter.TransID = value
	case model.SearchLastFour:
		lastFour, err := PadLastFour(value)
		if err != nil {
			return nil, newValidationError(ErrInvalidSearch, err.Error())
		}
		filter.LastFour = lastFour
	default:
		return nil, newValidationError(ErrInvalidSearch, fmt.Sprintf("unknown search field %q", query.SearchField))
	}

	return filter, nil
}
