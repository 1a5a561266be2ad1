package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// grantAdapter implements outbound.ResourceAccessPort.
type grantAdapter struct {
	db *gorm.DB
}

// NewGrantAdapter creates a new resource grant adapter.
func NewGrantAdapter(db *gorm.DB) outbound.ResourceAccessPort {
	return &grantAdapter{db: db}
}

func (a *grantAdapter) Grant(ctx context.Context, courseID, userID uuid.UUID, orderID int64) error {
	grant := &model.ResourceGrant{
		ID:        uuid.New(),
		CourseID:  courseID,
		UserID:    userID,
		OrderID:   orderID,
		GrantedAt: time.Now(),
	}
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"order_id":   orderID,
				"granted_at": grant.GrantedAt,
				"revoked_at": nil,
			}),
		}).
		Create(grant).Error
	if err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}

func (a *grantAdapter) Revoke(ctx context.Context, courseID, userID uuid.UUID) error {
	err := a.db.WithContext(ctx).
		Model(&model.ResourceGrant{}).
		Where("course_id = ? AND user_id = ? AND revoked_at IS NULL", courseID, userID).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}
	return nil
}

func (a *grantAdapter) HasAccess(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&model.ResourceGrant{}).
		Where("course_id = ? AND user_id = ? AND revoked_at IS NULL", courseID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check access: %w", err)
	}
	return count > 0, nil
}

// Compile-time check
var _ outbound.ResourceAccessPort = (*grantAdapter)(nil)
