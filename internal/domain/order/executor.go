package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/infra/events"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/utils/requestctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// target is the order, and optionally one of its refunds, an action applies to.
type target struct {
	order   *model.Order
	refunds []*model.Refund
	refund  *model.Refund
}

func (t *target) record() model.Record {
	if t.refund != nil {
		return t.refund.Record(t.order)
	}
	return t.order.Record()
}

func findRefund(refunds []*model.Refund, id int64) *model.Refund {
	for _, r := range refunds {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// commit records an accepted gateway result inside the action's transaction
// and returns the event to publish once committed.
type commit func(ctx context.Context, tx outbound.OrderStore, t *target, req *model.ConfirmedAction, res *model.GatewayResult, now time.Time) (events.Event, error)

// handler describes how an action talks to the gateway and what it writes.
type handler struct {
	gatewayAction model.GatewayAction
	// acceptReview lets a REVIEW answer be committed instead of rejected.
	acceptReview bool
	commit       commit
}

func (d *orderDomain) handlers() map[model.Action]handler {
	return map[model.Action]handler{
		model.ActionCapture: {gatewayAction: model.GatewayPriorAuthCapture, acceptReview: true, commit: d.commitCapture},
		model.ActionRefund:  {gatewayAction: model.GatewayCredit, commit: d.commitRefund},
		model.ActionVoid:    {gatewayAction: model.GatewayVoid, commit: d.commitVoid},
		model.ActionDelete:  {commit: d.commitDelete},
	}
}

// RequestAction checks that the action is currently allowed and issues the
// single-use token the confirmation step must carry.
func (d *orderDomain) RequestAction(ctx context.Context, intent *model.ActionIntent, capability model.Capability) (*model.ConfirmationTicket, error) {
	order, err := d.orderDB.FindByID(ctx, intent.OrderID)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil || !capability.CanView(order) {
		return nil, ErrOrderNotFound
	}
	if !capability.CanManage(order.CourseID) {
		return nil, newValidationError(ErrCapabilityRequired, "")
	}

	refunds, err := d.refundDB.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find refunds: %w", err)
	}
	t := &target{order: order, refunds: refunds}
	if intent.RefundID != 0 {
		if t.refund = findRefund(refunds, intent.RefundID); t.refund == nil {
			return nil, ErrRefundNotFound
		}
	}

	now := d.now()
	res := d.resolver.Resolve(t.record(), now, capability)
	if !res.Allows(intent.Action) {
		return nil, &ConsistencyError{Action: intent.Action, Current: res}
	}
	if intent.Action == model.ActionRefund {
		if err := d.ledger.CheckRefund(order, refunds, intent.Amount); err != nil {
			return nil, err
		}
	}

	token := uuid.NewString()
	expiresAt := now.Add(d.cfg.ConfirmationTTL)
	ci := &model.ConfirmationIntent{
		OrderID:   order.ID,
		RefundID:  intent.RefundID,
		Action:    intent.Action,
		UserID:    capability.UserID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if intent.Action == model.ActionRefund {
		ci.Amount = intent.Amount
	}
	if err := d.tokens.Issue(ctx, token, ci, d.cfg.ConfirmationTTL); err != nil {
		return nil, fmt.Errorf("issue confirmation token: %w", err)
	}

	return &model.ConfirmationTicket{
		Token:     token,
		OrderID:   order.ID,
		RefundID:  intent.RefundID,
		Action:    intent.Action,
		Amount:    ci.Amount,
		ExpiresAt: expiresAt,
		Current:   res,
	}, nil
}

func (d *orderDomain) Capture(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return d.execute(ctx, model.ActionCapture, req, capability)
}

func (d *orderDomain) Refund(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return d.execute(ctx, model.ActionRefund, req, capability)
}

func (d *orderDomain) Void(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return d.execute(ctx, model.ActionVoid, req, capability)
}

func (d *orderDomain) Delete(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return d.execute(ctx, model.ActionDelete, req, capability)
}

func (d *orderDomain) consumeToken(ctx context.Context, action model.Action, req *model.ConfirmedAction, capability model.Capability) error {
	if req.Token == "" {
		return newValidationError(ErrConfirmationRequired, "")
	}
	intent, err := d.tokens.Consume(ctx, req.Token)
	if err != nil {
		return fmt.Errorf("consume confirmation token: %w", err)
	}
	if intent == nil || !intent.Matches(action, req, capability.UserID) {
		return newValidationError(ErrInvalidConfirmation, "")
	}
	return nil
}

// execute runs a confirmed action. The order row is locked for the whole
// call so the action is re-validated against the stored status, the gateway
// is called at most once, and the result is committed or nothing changes.
func (d *orderDomain) execute(ctx context.Context, action model.Action, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	h := d.handlers()[action]

	if err := d.consumeToken(ctx, action, req, capability); err != nil {
		return nil, err
	}

	var (
		t        *target
		accepted *model.GatewayResult
		result   *model.ActionResult
		event    events.Event
	)

	// Once the gateway is called the local write must not be abandoned
	// because the caller went away.
	txCtx := context.WithoutCancel(ctx)

	err := d.uow.Do(txCtx, func(tx outbound.OrderStore) error {
		var err error
		t, err = d.lockTarget(txCtx, tx, req)
		if err != nil {
			return err
		}
		if !capability.CanView(t.order) {
			return ErrOrderNotFound
		}
		if !capability.CanManage(t.order.CourseID) {
			return newValidationError(ErrCapabilityRequired, "")
		}

		now := d.now()
		res := d.resolver.Resolve(t.record(), now, capability)
		if !res.Allows(action) {
			return &ConsistencyError{Action: action, Current: res}
		}
		if action == model.ActionRefund {
			if err := d.ledger.CheckRefund(t.order, t.refunds, req.Amount); err != nil {
				return err
			}
		}

		var gwRes *model.GatewayResult
		if h.gatewayAction != "" {
			gwRes, err = d.callGateway(ctx, h, action, t, req)
			if err != nil {
				return err
			}
			accepted = gwRes
		}

		event, err = h.commit(txCtx, tx, t, req, gwRes, now)
		if err != nil {
			return err
		}

		result = &model.ActionResult{
			OrderID:  t.order.ID,
			RefundID: req.RefundID,
			Action:   action,
		}
		if gwRes != nil {
			result.TransID = gwRes.TransID
			result.Message = gwRes.Message
		}
		if action != model.ActionDelete {
			status := d.resolver.Resolve(t.record(), now, capability).Status
			result.Status = &status
		}
		return nil
	})

	if err != nil {
		if accepted != nil {
			return nil, d.reconciliationFailure(txCtx, action, t, req, accepted, err)
		}
		d.logRejected(action, req, err)
		return nil, err
	}

	d.logger.Info("order action committed",
		zap.String("action", action.String()),
		zap.Int64("order_id", req.OrderID),
		zap.Int64("refund_id", req.RefundID),
		zap.String("trans_id", result.TransID),
	)
	if d.publisher != nil && event != nil {
		d.publisher.Publish(event)
	}
	return result, nil
}

func (d *orderDomain) lockTarget(ctx context.Context, tx outbound.OrderStore, req *model.ConfirmedAction) (*target, error) {
	order, err := tx.Orders().FindByIDForUpdate(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	refunds, err := tx.Refunds().FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find refunds: %w", err)
	}

	t := &target{order: order, refunds: refunds}
	if req.RefundID != 0 {
		if t.refund = findRefund(refunds, req.RefundID); t.refund == nil {
			return nil, ErrRefundNotFound
		}
	}
	return t, nil
}

// callGateway sends the action's single gateway call. Anything but an
// approval (or a review, where the action accepts one) becomes a GatewayError.
func (d *orderDomain) callGateway(ctx context.Context, h handler, action model.Action, t *target, req *model.ConfirmedAction) (*model.GatewayResult, error) {
	gwReq := &model.GatewayRequest{
		Action:   h.gatewayAction,
		OrderID:  t.order.ID,
		TransID:  t.order.TransID,
		Amount:   t.order.Amount,
		Currency: t.order.Currency,
		Method:   t.order.Method,
	}
	switch action {
	case model.ActionRefund:
		gwReq.Amount = req.Amount
		gwReq.MaskedDetail = t.order.MaskedDetail
	case model.ActionVoid:
		if t.refund != nil {
			gwReq.RefundID = t.refund.ID
			gwReq.TransID = t.refund.TransID
			gwReq.Amount = t.refund.Amount
		}
	}

	res, err := d.gateway.Process(ctx, gwReq)
	if err != nil {
		return nil, &GatewayError{
			Gateway: d.gateway.Name(),
			Code:    model.ResultError,
			Message: err.Error(),
			Err:     err,
		}
	}

	switch {
	case res.Code == model.ResultApproved:
		return res, nil
	case res.Code == model.ResultReview && h.acceptReview:
		return res, nil
	case res.Code == model.ResultReview:
		// A review on a credit or void leaves nothing we can record.
		return nil, &GatewayError{Gateway: d.gateway.Name(), Code: model.ResultError, Message: res.Message}
	default:
		return nil, &GatewayError{Gateway: d.gateway.Name(), Code: res.Code, Message: res.Message}
	}
}

func (d *orderDomain) commitCapture(ctx context.Context, tx outbound.OrderStore, t *target, _ *model.ConfirmedAction, res *model.GatewayResult, now time.Time) (events.Event, error) {
	o := t.order
	if hasTransID(res.TransID) {
		o.TransID = res.TransID
	}
	o.UpdatedAt = now

	if res.Code == model.ResultReview {
		o.Status = model.StatusUnderReview
		if err := tx.Orders().Update(ctx, o); err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
		return newOrderEvent(EventOrderUnderReview, o, now), nil
	}

	o.Status = model.StatusAuthCapture
	o.SettleTime = d.settleTime(res, now)
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if err := tx.Grants().Grant(ctx, o.CourseID, o.PayerID, o.ID); err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	return newOrderEvent(EventOrderCaptured, o, now), nil
}

// settleTime prefers the gateway's hint and otherwise predicts the next cutoff.
func (d *orderDomain) settleTime(res *model.GatewayResult, now time.Time) *time.Time {
	if res.SettlesAt != nil {
		return res.SettlesAt
	}
	at := d.policy.SettleTime(now)
	return &at
}

func (d *orderDomain) commitRefund(ctx context.Context, tx outbound.OrderStore, t *target, req *model.ConfirmedAction, res *model.GatewayResult, now time.Time) (events.Event, error) {
	refund := &model.Refund{
		OrderID:    t.order.ID,
		TransID:    res.TransID,
		Status:     model.StatusCredit,
		Amount:     req.Amount,
		SettleTime: d.settleTime(res, now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.Refunds().Create(ctx, refund); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	if req.RevokeAccess {
		if err := tx.Grants().Revoke(ctx, t.order.CourseID, t.order.PayerID); err != nil {
			return nil, fmt.Errorf("revoke access: %w", err)
		}
	}
	t.refunds = append(t.refunds, refund)
	return newRefundEvent(EventOrderRefunded, t.order, refund, now), nil
}

func (d *orderDomain) commitVoid(ctx context.Context, tx outbound.OrderStore, t *target, _ *model.ConfirmedAction, _ *model.GatewayResult, now time.Time) (events.Event, error) {
	if t.refund != nil {
		t.refund.Status = model.StatusVoid
		t.refund.UpdatedAt = now
		if err := tx.Refunds().Update(ctx, t.refund); err != nil {
			return nil, fmt.Errorf("update refund: %w", err)
		}
		return newRefundEvent(EventRefundVoided, t.order, t.refund, now), nil
	}

	o := t.order
	o.Status = model.StatusVoid
	o.UpdatedAt = now
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if err := tx.Grants().Revoke(ctx, o.CourseID, o.PayerID); err != nil {
		return nil, fmt.Errorf("revoke access: %w", err)
	}
	return newOrderEvent(EventOrderVoided, o, now), nil
}

func (d *orderDomain) commitDelete(ctx context.Context, tx outbound.OrderStore, t *target, _ *model.ConfirmedAction, _ *model.GatewayResult, now time.Time) (events.Event, error) {
	o := t.order
	if err := tx.Refunds().DeleteByOrderID(ctx, o.ID); err != nil {
		return nil, fmt.Errorf("delete refunds: %w", err)
	}
	if err := tx.Orders().Delete(ctx, o.ID); err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}
	if err := tx.Grants().Revoke(ctx, o.CourseID, o.PayerID); err != nil {
		return nil, fmt.Errorf("revoke access: %w", err)
	}
	return newOrderEvent(EventOrderDeleted, o, now), nil
}

// reconciliationFailure escalates a gateway-accepted action that could not be
// recorded. The returned error is always a ReconciliationError.
func (d *orderDomain) reconciliationFailure(ctx context.Context, action model.Action, t *target, req *model.ConfirmedAction, res *model.GatewayResult, cause error) error {
	recErr := &ReconciliationError{
		OrderID:        req.OrderID,
		RefundID:       req.RefundID,
		Action:         action,
		GatewayTransID: res.TransID,
		Err:            cause,
	}

	amount := req.Amount
	if action != model.ActionRefund && t != nil {
		amount = t.order.Amount
	}

	d.logger.Error("gateway accepted action was not recorded",
		zap.String("action", action.String()),
		zap.Int64("order_id", req.OrderID),
		zap.Int64("refund_id", req.RefundID),
		zap.String("gateway", d.gateway.Name()),
		zap.String("gateway_trans_id", res.TransID),
		zap.Int64("amount", amount),
		zap.Error(cause),
	)

	incident := &model.ReconciliationIncident{
		ID:             uuid.New(),
		OrderID:        req.OrderID,
		RefundID:       req.RefundID,
		Action:         action.String(),
		Gateway:        d.gateway.Name(),
		GatewayTransID: res.TransID,
		Amount:         amount,
		Error:          cause.Error(),
		GatewayFields:  res.Raw,
		RequestID:      requestctx.RequestID(ctx),
		ActorID:        requestctx.Actor(ctx),
		CreatedAt:      d.now(),
	}
	if err := d.alerts.Raise(ctx, incident); err != nil {
		d.logger.Error("failed to raise reconciliation alert",
			zap.String("incident_id", incident.ID.String()),
			zap.Int64("order_id", req.OrderID),
			zap.Error(err),
		)
	}
	return recErr
}

func (d *orderDomain) logRejected(action model.Action, req *model.ConfirmedAction, err error) {
	fields := []zap.Field{
		zap.String("action", action.String()),
		zap.Int64("order_id", req.OrderID),
		zap.Int64("refund_id", req.RefundID),
		zap.Error(err),
	}
	var gwErr *GatewayError
	switch {
	case errors.As(err, &gwErr):
		d.logger.Warn("gateway rejected order action", fields...)
	case IsValidation(err), IsConsistency(err), errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrRefundNotFound):
		d.logger.Info("order action refused", fields...)
	default:
		d.logger.Error("order action failed", fields...)
	}
}
