package postgres

import (
	"context"

	"github.com/coursepay/server/internal/port/outbound"
	"gorm.io/gorm"
)

// unitOfWork implements outbound.UnitOfWorkPort on a gorm transaction.
type unitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new unit of work.
func NewUnitOfWork(db *gorm.DB) outbound.UnitOfWorkPort {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(store outbound.OrderStore) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{tx: tx})
	})
}

// txStore hands out adapters bound to one transaction.
type txStore struct {
	tx *gorm.DB
}

func (s *txStore) Orders() outbound.OrderDatabasePort {
	return &orderAdapter{db: s.tx}
}

func (s *txStore) Refunds() outbound.RefundDatabasePort {
	return &refundAdapter{db: s.tx}
}

func (s *txStore) Grants() outbound.ResourceAccessPort {
	return &grantAdapter{db: s.tx}
}

// Compile-time check
var _ outbound.UnitOfWorkPort = (*unitOfWork)(nil)
