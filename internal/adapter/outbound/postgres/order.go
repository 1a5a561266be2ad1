package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderAdapter implements outbound.OrderDatabasePort.
type orderAdapter struct {
	db *gorm.DB
}

// NewOrderAdapter creates a new order database adapter.
func NewOrderAdapter(db *gorm.DB) outbound.OrderDatabasePort {
	return &orderAdapter{db: db}
}

func (a *orderAdapter) Create(ctx context.Context, order *model.Order) error {
	if err := a.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (a *orderAdapter) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := a.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by id: %w", err)
	}
	return &order, nil
}

func (a *orderAdapter) FindByIDForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &order, nil
}

func (a *orderAdapter) FindByFilter(ctx context.Context, filter *model.OrderFilter) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := a.db.WithContext(ctx).Model(&model.Order{})

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.OrderID != nil {
		query = query.Where("id = ?", *filter.OrderID)
	}
	if filter.TransID != "" {
		// A transaction id may belong to the order or to one of its refunds.
		refundOrders := a.db.WithContext(ctx).Model(&model.Refund{}).Select("order_id").Where("trans_id = ?", filter.TransID)
		query = query.Where("trans_id = ? OR id IN (?)", filter.TransID, refundOrders)
	}
	if filter.LastFour != "" {
		query = query.Where("masked_detail = ?", filter.LastFour)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.Scope != nil {
		if len(filter.Scope.Courses) > 0 {
			query = query.Where("payer_id = ? OR course_id IN ?", filter.Scope.PayerID, filter.Scope.Courses)
		} else {
			query = query.Where("payer_id = ?", filter.Scope.PayerID)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	if err := query.Offset(filter.Offset).Limit(filter.Limit).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}

	return orders, total, nil
}

func (a *orderAdapter) FindUnsettled(ctx context.Context, afterID int64, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := a.db.WithContext(ctx).
		Where("status IN ? AND settle_time IS NULL", []model.RawStatus{model.StatusAuthCapture, model.StatusCredit}).
		Where("trans_id NOT IN ?", []string{"", "0"}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("find unsettled orders: %w", err)
	}
	return orders, nil
}

func (a *orderAdapter) FindByStatus(ctx context.Context, status model.RawStatus, afterID int64, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := a.db.WithContext(ctx).
		Where("status = ? AND id > ?", status, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("find orders by status: %w", err)
	}
	return orders, nil
}

func (a *orderAdapter) Update(ctx context.Context, order *model.Order) error {
	if err := a.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error; err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (a *orderAdapter) Delete(ctx context.Context, id int64) error {
	if err := a.db.WithContext(ctx).Delete(&model.Order{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// Compile-time check
var _ outbound.OrderDatabasePort = (*orderAdapter)(nil)
