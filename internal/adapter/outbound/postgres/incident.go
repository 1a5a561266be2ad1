package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// incidentAdapter implements outbound.IncidentDatabasePort.
type incidentAdapter struct {
	db *gorm.DB
}

// NewIncidentAdapter creates a new reconciliation incident adapter.
func NewIncidentAdapter(db *gorm.DB) outbound.IncidentDatabasePort {
	return &incidentAdapter{db: db}
}

func (a *incidentAdapter) Create(ctx context.Context, incident *model.ReconciliationIncident) error {
	if err := a.db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (a *incidentAdapter) ListOpen(ctx context.Context, limit int) ([]*model.ReconciliationIncident, error) {
	var incidents []*model.ReconciliationIncident
	err := a.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("list open incidents: %w", err)
	}
	return incidents, nil
}

func (a *incidentAdapter) Resolve(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := a.db.WithContext(ctx).
		Model(&model.ReconciliationIncident{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at)
	if result.Error != nil {
		return fmt.Errorf("resolve incident: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resolve incident %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Compile-time check
var _ outbound.IncidentDatabasePort = (*incidentAdapter)(nil)
