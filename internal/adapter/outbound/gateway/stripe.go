package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const stripeName = "stripe"

// Stripe cancels uncaptured PaymentIntents after seven days.
const stripeHoldWindow = 7 * 24 * time.Hour

// StripeOptions configures the Stripe gateway.
type StripeOptions struct {
	SecretKey string
	// BaseURL overrides the API endpoint in tests.
	BaseURL string
	Now     func() time.Time
}

// stripeGateway maps the gateway contract onto PaymentIntents and Refunds.
// Order transaction ids are PaymentIntent ids, refund transaction ids are
// Refund ids.
type stripeGateway struct {
	api  *client.API
	opts StripeOptions
}

// NewStripeGateway creates the Stripe gateway adapter.
func NewStripeGateway(httpClient *http.Client, opts StripeOptions) outbound.GatewayPort {
	backendCfg := &stripe.BackendConfig{
		HTTPClient: httpClient,
		// Retries belong to the resilience decorator, which never retries mutations.
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if opts.BaseURL != "" {
		backendCfg.URL = stripe.String(opts.BaseURL)
	}

	api := &client.API{}
	api.Init(opts.SecretKey, stripe.NewBackendsWithConfig(backendCfg))
	return &stripeGateway{api: api, opts: opts}
}

func (g *stripeGateway) Name() string {
	return stripeName
}

func (g *stripeGateway) now() time.Time {
	if g.opts.Now != nil {
		return g.opts.Now()
	}
	return time.Now()
}

func (g *stripeGateway) Process(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	switch req.Action {
	case model.GatewayPriorAuthCapture:
		return g.capture(ctx, req)
	case model.GatewayCredit:
		return g.credit(ctx, req)
	case model.GatewayVoid:
		if req.RefundID != 0 {
			return g.cancelRefund(ctx, req)
		}
		return g.cancelIntent(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported gateway action %q", req.Action)
	}
}

func (g *stripeGateway) capture(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if req.Amount > 0 {
		params.AmountToCapture = stripe.Int64(req.Amount)
	}

	pi, err := g.api.PaymentIntents.Capture(req.TransID, params)
	if err != nil {
		return fromStripeError(err)
	}
	return intentResult(pi), nil
}

func (g *stripeGateway) cancelIntent(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Cancel(req.TransID, params)
	if err != nil {
		return fromStripeError(err)
	}
	if pi.Status != stripe.PaymentIntentStatusCanceled {
		return &model.GatewayResult{Code: model.ResultDeclined, Message: "payment intent is " + string(pi.Status), TransID: pi.ID}, nil
	}
	return &model.GatewayResult{Code: model.ResultApproved, TransID: pi.ID, Raw: []string{pi.ID, string(pi.Status)}}, nil
}

func (g *stripeGateway) credit(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	for k, v := range req.Extra {
		params.AddMetadata(k, v)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return fromStripeError(err)
	}
	return refundResult(r), nil
}

func (g *stripeGateway) cancelRefund(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	params := &stripe.RefundCancelParams{}
	params.Context = ctx

	r, err := g.api.Refunds.Cancel(req.TransID, params)
	if err != nil {
		return fromStripeError(err)
	}
	if r.Status != stripe.RefundStatusCanceled {
		return &model.GatewayResult{Code: model.ResultDeclined, Message: "refund is " + string(r.Status), TransID: r.ID}, nil
	}
	return &model.GatewayResult{Code: model.ResultApproved, TransID: r.ID, Raw: []string{r.ID, string(r.Status)}}, nil
}

// Settled reports whether the balance transaction behind the capture or
// refund has become available.
func (g *stripeGateway) Settled(ctx context.Context, txn *model.GatewayTransaction) (bool, error) {
	switch txn.Status {
	case model.StatusAuthCapture:
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		params.AddExpand("latest_charge.balance_transaction")

		pi, err := g.api.PaymentIntents.Get(txn.TransID, params)
		if err != nil {
			return false, fmt.Errorf("get payment intent: %w", err)
		}
		if pi.LatestCharge == nil || pi.LatestCharge.BalanceTransaction == nil {
			return false, nil
		}
		return pi.LatestCharge.BalanceTransaction.Status == stripe.BalanceTransactionStatusAvailable, nil

	case model.StatusCredit:
		params := &stripe.RefundParams{}
		params.Context = ctx
		params.AddExpand("balance_transaction")

		r, err := g.api.Refunds.Get(txn.TransID, params)
		if err != nil {
			return false, fmt.Errorf("get refund: %w", err)
		}
		if r.BalanceTransaction == nil {
			return false, nil
		}
		return r.BalanceTransaction.Status == stripe.BalanceTransactionStatusAvailable, nil

	default:
		return false, nil
	}
}

// Expired reports whether Stripe released the hold on an uncaptured intent.
func (g *stripeGateway) Expired(ctx context.Context, txn *model.GatewayTransaction) (bool, error) {
	if txn.Status != model.StatusAuth {
		return txn.Status == model.StatusExpire, nil
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(txn.TransID, params)
	if err != nil {
		return false, fmt.Errorf("get payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusCanceled:
		return pi.CancellationReason == stripe.PaymentIntentCancellationReasonAutomatic, nil
	case stripe.PaymentIntentStatusRequiresCapture:
		return time.Unix(pi.Created, 0).Add(stripeHoldWindow).Before(g.now()), nil
	default:
		return false, nil
	}
}

func intentResult(pi *stripe.PaymentIntent) *model.GatewayResult {
	res := &model.GatewayResult{TransID: pi.ID, Raw: []string{pi.ID, string(pi.Status)}}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Code = model.ResultApproved
	case stripe.PaymentIntentStatusProcessing:
		res.Code = model.ResultReview
		res.Message = "payment is processing"
	default:
		res.Code = model.ResultDeclined
		res.Message = "payment intent is " + string(pi.Status)
	}
	return res
}

func refundResult(r *stripe.Refund) *model.GatewayResult {
	res := &model.GatewayResult{TransID: r.ID, Raw: []string{r.ID, string(r.Status)}}
	switch r.Status {
	case stripe.RefundStatusSucceeded, stripe.RefundStatusPending:
		res.Code = model.ResultApproved
	case stripe.RefundStatusRequiresAction:
		res.Code = model.ResultReview
		res.Message = "refund requires action"
	default:
		res.Code = model.ResultDeclined
		res.Message = "refund " + string(r.Status)
		if r.FailureReason != "" {
			res.Message += ": " + string(r.FailureReason)
		}
	}
	return res
}

// fromStripeError turns client errors (4xx) into declines. Anything else
// leaves the outcome unknown.
func fromStripeError(err error) (*model.GatewayResult, error) {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.HTTPStatusCode >= 400 && serr.HTTPStatusCode < 500 && serr.HTTPStatusCode != http.StatusTooManyRequests {
		return &model.GatewayResult{
			Code:    model.ResultDeclined,
			Message: serr.Msg,
			Raw:     []string{string(serr.Type), string(serr.Code), serr.Msg},
		}, nil
	}
	return nil, fmt.Errorf("stripe: %w", err)
}

// Compile-time check
var _ outbound.GatewayPort = (*stripeGateway)(nil)
