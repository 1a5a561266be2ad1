// Package alert escalates reconciliation incidents.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/utils/metrics"
	"go.uber.org/zap"
)

// Alerter records an incident everywhere an operator may look for it: the
// error log, a metric, the incidents table and the object archive. A failing
// sink does not stop the others.
type Alerter struct {
	incidents outbound.IncidentDatabasePort
	archive   outbound.IncidentArchivePort
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAlerter creates an alerter. archive and m may be nil.
func NewAlerter(
	incidents outbound.IncidentDatabasePort,
	archive outbound.IncidentArchivePort,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Alerter {
	return &Alerter{
		incidents: incidents,
		archive:   archive,
		metrics:   m,
		logger:    logger,
	}
}

// Raise records the incident. It returns the joined errors of the sinks that failed.
func (a *Alerter) Raise(ctx context.Context, incident *model.ReconciliationIncident) error {
	a.logger.Error("RECONCILIATION REQUIRED",
		zap.String("incident_id", incident.ID.String()),
		zap.Int64("order_id", incident.OrderID),
		zap.Int64("refund_id", incident.RefundID),
		zap.String("action", incident.Action),
		zap.String("gateway", incident.Gateway),
		zap.String("gateway_trans_id", incident.GatewayTransID),
		zap.Int64("amount", incident.Amount),
		zap.Strings("gateway_fields", incident.GatewayFields),
		zap.String("error", incident.Error),
	)

	if a.metrics != nil {
		a.metrics.RecordReconciliationFailure(incident.Gateway, incident.Action)
	}

	var errs []error
	if a.incidents != nil {
		if err := a.incidents.Create(ctx, incident); err != nil {
			errs = append(errs, fmt.Errorf("store incident: %w", err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Put(ctx, incident); err != nil {
			errs = append(errs, fmt.Errorf("archive incident: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Compile-time check
var _ outbound.ReconciliationAlertPort = (*Alerter)(nil)
