package order

import (
	"context"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"go.uber.org/zap"
)

// ReconcileOptions controls a reconciliation pass.
type ReconcileOptions struct {
	// DryRun reports what would change without writing.
	DryRun bool
	// BatchSize caps the rows examined per query. Zero uses the domain default.
	BatchSize int
}

// Reconcile records settlements and expiries the gateway knows about but the
// database does not. Gateway query failures are counted and skipped.
func (d *orderDomain) Reconcile(ctx context.Context, opts ReconcileOptions) (*model.ReconcileReport, error) {
	limit := opts.BatchSize
	if limit <= 0 {
		limit = d.cfg.ReconcileBatchSize
	}
	if limit <= 0 {
		limit = DefaultConfig().ReconcileBatchSize
	}
	report := &model.ReconcileReport{}

	if err := d.settleOrders(ctx, opts, limit, report); err != nil {
		return report, err
	}
	if err := d.settleRefunds(ctx, opts, limit, report); err != nil {
		return report, err
	}
	if err := d.expireAuthorizations(ctx, opts, limit, report); err != nil {
		return report, err
	}

	d.logger.Info("reconciliation pass finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("checked", report.Checked),
		zap.Int("settled", report.Settled),
		zap.Int("refund_settled", report.RefundSettled),
		zap.Int("expired", report.Expired),
		zap.Int("failures", report.Failures),
	)
	return report, nil
}

// Each pass pages through its rows by id so rows the gateway keeps reporting
// as pending cannot starve newer ones.
func (d *orderDomain) settleOrders(ctx context.Context, opts ReconcileOptions, limit int, report *model.ReconcileReport) error {
	var afterID int64
	for {
		orders, err := d.orderDB.FindUnsettled(ctx, afterID, limit)
		if err != nil {
			return fmt.Errorf("find unsettled orders: %w", err)
		}
		for _, o := range orders {
			d.settleOrder(ctx, opts, o, report)
		}
		if len(orders) < limit {
			return nil
		}
		afterID = orders[len(orders)-1].ID
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (d *orderDomain) settleOrder(ctx context.Context, opts ReconcileOptions, o *model.Order, report *model.ReconcileReport) {
	report.Checked++
	settled, err := d.gateway.Settled(ctx, o.Transaction())
	if err != nil {
		report.Failures++
		d.logger.Warn("settlement query failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	if !settled {
		return
	}
	if !opts.DryRun {
		if err := d.markOrderSettled(ctx, o.ID, d.now()); err != nil {
			report.Failures++
			d.logger.Error("failed to record settlement", zap.Int64("order_id", o.ID), zap.Error(err))
			return
		}
	}
	report.Settled++
}

func (d *orderDomain) markOrderSettled(ctx context.Context, orderID int64, at time.Time) error {
	return d.uow.Do(ctx, func(tx outbound.OrderStore) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil || o.SettleTime != nil {
			return nil
		}
		o.SettleTime = &at
		o.UpdatedAt = at
		return tx.Orders().Update(ctx, o)
	})
}

func (d *orderDomain) settleRefunds(ctx context.Context, opts ReconcileOptions, limit int, report *model.ReconcileReport) error {
	parents := make(map[int64]*model.Order)
	var afterID int64
	for {
		refunds, err := d.refundDB.FindUnsettledCredits(ctx, afterID, limit)
		if err != nil {
			return fmt.Errorf("find unsettled refunds: %w", err)
		}
		for _, r := range refunds {
			d.settleRefund(ctx, opts, r, parents, report)
		}
		if len(refunds) < limit {
			return nil
		}
		afterID = refunds[len(refunds)-1].ID
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (d *orderDomain) settleRefund(ctx context.Context, opts ReconcileOptions, r *model.Refund, parents map[int64]*model.Order, report *model.ReconcileReport) {
	report.Checked++
	parent, ok := parents[r.OrderID]
	if !ok {
		var err error
		parent, err = d.orderDB.FindByID(ctx, r.OrderID)
		if err != nil {
			report.Failures++
			d.logger.Warn("failed to load refund parent", zap.Int64("refund_id", r.ID), zap.Error(err))
			return
		}
		parents[r.OrderID] = parent
	}
	if parent == nil {
		return
	}

	settled, err := d.gateway.Settled(ctx, r.Transaction(parent))
	if err != nil {
		report.Failures++
		d.logger.Warn("settlement query failed", zap.Int64("refund_id", r.ID), zap.Error(err))
		return
	}
	if !settled {
		return
	}
	if !opts.DryRun {
		if err := d.markRefundSettled(ctx, r, d.now()); err != nil {
			report.Failures++
			d.logger.Error("failed to record refund settlement", zap.Int64("refund_id", r.ID), zap.Error(err))
			return
		}
	}
	report.RefundSettled++
}

// markRefundSettled locks the parent order so it cannot race a void on the
// same refund.
func (d *orderDomain) markRefundSettled(ctx context.Context, refund *model.Refund, at time.Time) error {
	return d.uow.Do(ctx, func(tx outbound.OrderStore) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, refund.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return nil
		}
		r, err := tx.Refunds().FindByID(ctx, refund.ID)
		if err != nil {
			return err
		}
		if r == nil || r.Status != model.StatusCredit || r.SettleTime != nil {
			return nil
		}
		r.SettleTime = &at
		r.UpdatedAt = at
		return tx.Refunds().Update(ctx, r)
	})
}

func (d *orderDomain) expireAuthorizations(ctx context.Context, opts ReconcileOptions, limit int, report *model.ReconcileReport) error {
	var afterID int64
	for {
		orders, err := d.orderDB.FindByStatus(ctx, model.StatusAuth, afterID, limit)
		if err != nil {
			return fmt.Errorf("find authorizations: %w", err)
		}
		for _, o := range orders {
			d.expireAuthorization(ctx, opts, o, report)
		}
		if len(orders) < limit {
			return nil
		}
		afterID = orders[len(orders)-1].ID
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (d *orderDomain) expireAuthorization(ctx context.Context, opts ReconcileOptions, o *model.Order, report *model.ReconcileReport) {
	report.Checked++
	now := d.now()
	expired := d.policy.Expired(o.Record(), now)
	if !expired {
		var err error
		expired, err = d.gateway.Expired(ctx, o.Transaction())
		if err != nil {
			report.Failures++
			d.logger.Warn("expiry query failed", zap.Int64("order_id", o.ID), zap.Error(err))
			return
		}
	}
	if !expired {
		return
	}
	if opts.DryRun {
		report.Expired++
		return
	}

	var changed *model.Order
	err := d.uow.Do(ctx, func(tx outbound.OrderStore) error {
		locked, err := tx.Orders().FindByIDForUpdate(ctx, o.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Status != model.StatusAuth {
			return nil
		}
		locked.Status = model.StatusExpire
		locked.UpdatedAt = now
		if err := tx.Orders().Update(ctx, locked); err != nil {
			return err
		}
		changed = locked
		return nil
	})
	if err != nil {
		report.Failures++
		d.logger.Error("failed to expire order", zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	if changed == nil {
		return
	}
	report.Expired++
	if d.publisher != nil {
		d.publisher.Publish(newOrderEvent(EventOrderExpired, changed, now))
	}
}
