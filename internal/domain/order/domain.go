package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderDomain defines the interface for payment order business logic.
type OrderDomain interface {
	// Checkout boundary
	CreateOrder(ctx context.Context, payerID uuid.UUID, input *model.CreateOrderInput) (*model.Order, error)
	RecordAuthorization(ctx context.Context, orderID int64, outcome *model.RecordAuthorizationRequest, capability model.Capability) (*model.OrderView, error)

	// Read path
	GetOrder(ctx context.Context, orderID int64, capability model.Capability) (*model.OrderDetail, error)
	ListOrders(ctx context.Context, query *model.ListQuery, capability model.Capability) (*model.PaginatedResponse[model.OrderView], error)

	// Actions
	RequestAction(ctx context.Context, intent *model.ActionIntent, capability model.Capability) (*model.ConfirmationTicket, error)
	Capture(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error)
	Refund(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error)
	Void(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error)
	Delete(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error)

	// Maintenance
	Reconcile(ctx context.Context, opts ReconcileOptions) (*model.ReconcileReport, error)
}

// Config holds order domain settings.
type Config struct {
	ConfirmationTTL    time.Duration
	DefaultPageSize    int
	MaxPageSize        int
	ReconcileBatchSize int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// DefaultConfig returns default order domain settings.
func DefaultConfig() *Config {
	return &Config{
		ConfirmationTTL:    10 * time.Minute,
		DefaultPageSize:    20,
		MaxPageSize:        100,
		ReconcileBatchSize: 500,
	}
}

// orderDomain implements OrderDomain.
type orderDomain struct {
	orderDB   outbound.OrderDatabasePort
	refundDB  outbound.RefundDatabasePort
	uow       outbound.UnitOfWorkPort
	gateway   outbound.GatewayPort
	tokens    outbound.ConfirmationTokenPort
	alerts    outbound.ReconciliationAlertPort
	publisher outbound.EventPublisherPort
	policy    *Policy
	resolver  *Resolver
	ledger    *Ledger
	cfg       *Config
	logger    *zap.Logger
}

// NewOrderDomain creates a new order domain service.
func NewOrderDomain(
	orderDB outbound.OrderDatabasePort,
	refundDB outbound.RefundDatabasePort,
	uow outbound.UnitOfWorkPort,
	gateway outbound.GatewayPort,
	tokens outbound.ConfirmationTokenPort,
	alerts outbound.ReconciliationAlertPort,
	publisher outbound.EventPublisherPort,
	policy *Policy,
	cfg *Config,
	logger *zap.Logger,
) OrderDomain {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	resolver := NewResolver(policy)
	return &orderDomain{
		orderDB:   orderDB,
		refundDB:  refundDB,
		uow:       uow,
		gateway:   gateway,
		tokens:    tokens,
		alerts:    alerts,
		publisher: publisher,
		policy:    policy,
		resolver:  resolver,
		ledger:    NewLedger(resolver),
		cfg:       cfg,
		logger:    logger,
	}
}

func (d *orderDomain) now() time.Time {
	if d.cfg.Now != nil {
		return d.cfg.Now()
	}
	return time.Now()
}

func (d *orderDomain) CreateOrder(ctx context.Context, payerID uuid.UUID, input *model.CreateOrderInput) (*model.Order, error) {
	if input.Amount <= 0 {
		return nil, newValidationError(ErrInvalidOrder, "amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, newValidationError(ErrInvalidOrder, fmt.Sprintf("unsupported payment method %q", input.Method))
	}
	if len(input.Currency) != 3 {
		return nil, newValidationError(ErrInvalidOrder, "currency must be a 3-letter code")
	}

	masked := ""
	if input.MaskedDetail != "" {
		var err error
		masked, err = PadLastFour(input.MaskedDetail)
		if err != nil {
			return nil, newValidationError(ErrInvalidOrder, err.Error())
		}
	}

	now := d.now()
	order := &model.Order{
		CourseID:     input.CourseID,
		PayerID:      payerID,
		PayerName:    input.PayerName,
		Method:       input.Method,
		Status:       model.StatusNew,
		Amount:       input.Amount,
		Currency:     strings.ToLower(input.Currency),
		MaskedDetail: masked,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.orderDB.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	d.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("course_id", order.CourseID.String()),
		zap.Int64("amount", order.Amount),
	)
	return order, nil
}

// RecordAuthorization stores the outcome of the checkout authorization, or
// the later review decision on an order held for review.
func (d *orderDomain) RecordAuthorization(ctx context.Context, orderID int64, outcome *model.RecordAuthorizationRequest, capability model.Capability) (*model.OrderView, error) {
	var view model.OrderView
	err := d.uow.Do(ctx, func(tx outbound.OrderStore) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if order == nil || !capability.CanView(order) {
			return ErrOrderNotFound
		}
		if !capability.CanManage(order.CourseID) {
			return newValidationError(ErrCapabilityRequired, "")
		}

		now := d.now()
		changed, err := applyAuthorization(order, outcome)
		if err != nil {
			return err
		}
		if changed {
			order.UpdatedAt = now
			if err := tx.Orders().Update(ctx, order); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
		}
		view = model.NewOrderView(order, d.resolver.Resolve(order.Record(), now, capability))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func applyAuthorization(order *model.Order, outcome *model.RecordAuthorizationRequest) (bool, error) {
	switch {
	case order.Status == model.StatusNew && !order.HasTransaction():
		if outcome.Result != model.ResultApproved && outcome.Result != model.ResultReview {
			return false, nil
		}
		if !hasTransID(outcome.TransID) {
			return false, newValidationError(ErrInvalidOrder, "transaction id required")
		}
		order.TransID = outcome.TransID
		if outcome.Result == model.ResultApproved {
			order.Status = model.StatusAuth
		} else {
			order.Status = model.StatusUnderReview
		}
		return true, nil

	case order.Status == model.StatusUnderReview:
		switch outcome.Result {
		case model.ResultApproved:
			order.Status = model.StatusApprovedReview
		case model.ResultDeclined:
			order.Status = model.StatusReviewFailed
		default:
			return false, nil
		}
		return true, nil

	default:
		return false, ErrOrderAlreadyAuthorized
	}
}

func hasTransID(id string) bool {
	return id != "" && id != "0"
}

func (d *orderDomain) GetOrder(ctx context.Context, orderID int64, capability model.Capability) (*model.OrderDetail, error) {
	order, err := d.orderDB.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil || !capability.CanView(order) {
		return nil, ErrOrderNotFound
	}

	refunds, err := d.refundDB.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find refunds: %w", err)
	}

	now := d.now()
	return &model.OrderDetail{
		Order:      model.NewOrderView(order, d.resolver.Resolve(order.Record(), now, capability)),
		Refunds:    d.ledger.History(order, refunds, now, capability),
		Refundable: d.ledger.Refundable(order, refunds),
	}, nil
}
