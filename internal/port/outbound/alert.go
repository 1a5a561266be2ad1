package outbound

import (
	"context"

	"github.com/coursepay/server/internal/infra/events"
	"github.com/coursepay/server/internal/model"
)

// ReconciliationAlertPort escalates gateway-approved mutations that were not
// recorded locally.
type ReconciliationAlertPort interface {
	Raise(ctx context.Context, incident *model.ReconciliationIncident) error
}

// IncidentArchivePort writes incidents to durable storage outside the database.
type IncidentArchivePort interface {
	Put(ctx context.Context, incident *model.ReconciliationIncident) error
}

// EventPublisherPort publishes domain events after a commit.
type EventPublisherPort interface {
	Publish(event events.Event)
}
