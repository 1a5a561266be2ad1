package outbound

import (
	"context"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/google/uuid"
)

// OrderDatabasePort defines order persistence operations.
type OrderDatabasePort interface {
	// Create inserts a checkout order.
	Create(ctx context.Context, order *model.Order) error

	// FindByID finds an order by ID. Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*model.Order, error)

	// FindByIDForUpdate finds an order and locks its row until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*model.Order, error)

	// FindByFilter finds orders by filter, newest first.
	FindByFilter(ctx context.Context, filter *model.OrderFilter) ([]*model.Order, int64, error)

	// FindUnsettled pages through captured or credited orders with no settle
	// time, returning up to limit rows with id > afterID in id order.
	FindUnsettled(ctx context.Context, afterID int64, limit int) ([]*model.Order, error)

	// FindByStatus pages through orders in the given status by id.
	FindByStatus(ctx context.Context, status model.RawStatus, afterID int64, limit int) ([]*model.Order, error)

	// Update saves an order.
	Update(ctx context.Context, order *model.Order) error

	// Delete removes an order.
	Delete(ctx context.Context, id int64) error
}

// RefundDatabasePort defines refund persistence operations.
type RefundDatabasePort interface {
	// Create inserts a refund.
	Create(ctx context.Context, refund *model.Refund) error

	// FindByID finds a refund by ID. Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*model.Refund, error)

	// FindByOrderID lists the refunds of an order, oldest first.
	FindByOrderID(ctx context.Context, orderID int64) ([]*model.Refund, error)

	// FindUnsettledCredits pages through credited refunds with no settle time
	// by id.
	FindUnsettledCredits(ctx context.Context, afterID int64, limit int) ([]*model.Refund, error)

	// Update saves a refund.
	Update(ctx context.Context, refund *model.Refund) error

	// DeleteByOrderID removes every refund of an order.
	DeleteByOrderID(ctx context.Context, orderID int64) error
}

// ResourceAccessPort grants and revokes the course access an order pays for.
type ResourceAccessPort interface {
	// Grant gives the user access to the course. Granting twice is a no-op.
	Grant(ctx context.Context, courseID, userID uuid.UUID, orderID int64) error

	// Revoke removes the user's access to the course. Revoking a missing
	// grant is a no-op.
	Revoke(ctx context.Context, courseID, userID uuid.UUID) error

	// HasAccess reports whether the user currently holds access.
	HasAccess(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
}

// OrderStore groups the stores that take part in one transaction.
type OrderStore interface {
	Orders() OrderDatabasePort
	Refunds() RefundDatabasePort
	Grants() ResourceAccessPort
}

// UnitOfWorkPort runs a function inside a database transaction.
type UnitOfWorkPort interface {
	// Do commits if fn returns nil and rolls back otherwise. The returned
	// error is fn's error or the commit error.
	Do(ctx context.Context, fn func(store OrderStore) error) error
}

// IncidentDatabasePort persists reconciliation incidents.
type IncidentDatabasePort interface {
	// Create inserts an incident.
	Create(ctx context.Context, incident *model.ReconciliationIncident) error

	// ListOpen lists unresolved incidents, oldest first.
	ListOpen(ctx context.Context, limit int) ([]*model.ReconciliationIncident, error)

	// Resolve marks an incident as resolved.
	Resolve(ctx context.Context, id uuid.UUID, at time.Time) error
}
