package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"gorm.io/gorm"
)

// refundAdapter implements outbound.RefundDatabasePort.
type refundAdapter struct {
	db *gorm.DB
}

// NewRefundAdapter creates a new refund database adapter.
func NewRefundAdapter(db *gorm.DB) outbound.RefundDatabasePort {
	return &refundAdapter{db: db}
}

func (a *refundAdapter) Create(ctx context.Context, refund *model.Refund) error {
	if err := a.db.WithContext(ctx).Create(refund).Error; err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}

func (a *refundAdapter) FindByID(ctx context.Context, id int64) (*model.Refund, error) {
	var refund model.Refund
	err := a.db.WithContext(ctx).First(&refund, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find refund by id: %w", err)
	}
	return &refund, nil
}

func (a *refundAdapter) FindByOrderID(ctx context.Context, orderID int64) ([]*model.Refund, error) {
	var refunds []*model.Refund
	err := a.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("find refunds by order: %w", err)
	}
	return refunds, nil
}

func (a *refundAdapter) FindUnsettledCredits(ctx context.Context, afterID int64, limit int) ([]*model.Refund, error) {
	var refunds []*model.Refund
	err := a.db.WithContext(ctx).
		Where("status = ? AND settle_time IS NULL", model.StatusCredit).
		Where("trans_id NOT IN ?", []string{"", "0"}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("find unsettled refunds: %w", err)
	}
	return refunds, nil
}

func (a *refundAdapter) Update(ctx context.Context, refund *model.Refund) error {
	if err := a.db.WithContext(ctx).Save(refund).Error; err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	return nil
}

func (a *refundAdapter) DeleteByOrderID(ctx context.Context, orderID int64) error {
	if err := a.db.WithContext(ctx).Delete(&model.Refund{}, "order_id = ?", orderID).Error; err != nil {
		return fmt.Errorf("delete refunds: %w", err)
	}
	return nil
}

// Compile-time check
var _ outbound.RefundDatabasePort = (*refundAdapter)(nil)
