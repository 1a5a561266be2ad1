package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/shared/config"
	"github.com/coursepay/server/internal/utils/cutoff"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	aimName      = "aim"
	aimVersion   = "3.1"
	aimDelimiter = "|"

	// Positions in the delimited response.
	aimFieldResponseCode = 0
	aimFieldReasonText   = 3
	aimFieldTransID      = 6
	aimMinFields         = 7

	maxResponseBytes = 64 << 10
)

// AIMOptions configures the form-post card gateway.
type AIMOptions struct {
	Endpoint       string
	LoginID        string
	TransactionKey string
	TestMode       bool
	Cutoff         cutoff.Schedule
	ExpiryWindow   time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// aimGateway speaks the name/value form protocol of AIM-style card gateways.
type aimGateway struct {
	client *http.Client
	opts   AIMOptions
}

// NewAIMGateway creates the AIM gateway adapter.
func NewAIMGateway(client *http.Client, opts AIMOptions) outbound.GatewayPort {
	return &aimGateway{client: client, opts: opts}
}

// NewAIMHTTPClient wraps base with client-credentials auth when configured.
func NewAIMHTTPClient(base *http.Client, cfg config.OAuthConfig) *http.Client {
	if !cfg.Enabled() {
		return base
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = base.Timeout
	return client
}

func (g *aimGateway) Name() string {
	return aimName
}

func (g *aimGateway) now() time.Time {
	if g.opts.Now != nil {
		return g.opts.Now()
	}
	return time.Now()
}

func (g *aimGateway) Process(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	form := g.baseForm()
	form.Set("x_type", string(req.Action))
	form.Set("x_trans_id", req.TransID)
	form.Set("x_invoice_num", strconv.FormatInt(req.OrderID, 10))
	form.Set("x_method", aimMethod(req.Method))
	if req.Amount > 0 {
		form.Set("x_amount", formatAmount(req.Amount))
	}
	if req.Action == model.GatewayCredit {
		// Credits must name the card or account they go back to.
		if req.Method == model.MethodECheck {
			form.Set("x_bank_acct_num", req.MaskedDetail)
		} else {
			form.Set("x_card_num", req.MaskedDetail)
		}
	}
	for k, v := range req.Extra {
		form.Set(k, v)
	}

	fields, err := g.post(ctx, form)
	if err != nil {
		return nil, err
	}

	result := &model.GatewayResult{
		Code:    aimResultCode(fields[aimFieldResponseCode]),
		Message: fields[aimFieldReasonText],
		TransID: fields[aimFieldTransID],
		Raw:     fields,
	}
	if result.Approved() && req.Action != model.GatewayVoid {
		settles := g.opts.Cutoff.Next(g.now())
		result.SettlesAt = &settles
	}
	return result, nil
}

// Settled is answered from the daily cutoff: a transaction settles in the
// first batch after it was made.
func (g *aimGateway) Settled(_ context.Context, txn *model.GatewayTransaction) (bool, error) {
	if txn.Status != model.StatusAuthCapture && txn.Status != model.StatusCredit {
		return false, nil
	}
	now := g.now()
	if txn.SettleTime != nil {
		return txn.SettleTime.Before(now), nil
	}
	return g.opts.Cutoff.Next(txn.CreatedAt).Before(now), nil
}

// Expired reports whether the hold window has passed, counted in batches.
func (g *aimGateway) Expired(_ context.Context, txn *model.GatewayTransaction) (bool, error) {
	if txn.Status != model.StatusAuth {
		return txn.Status == model.StatusExpire, nil
	}
	window := g.opts.ExpiryWindow
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return g.opts.Cutoff.Next(txn.CreatedAt).Before(g.opts.Cutoff.Next(g.now()).Add(-window)), nil
}

func (g *aimGateway) baseForm() url.Values {
	form := url.Values{}
	form.Set("x_login", g.opts.LoginID)
	form.Set("x_tran_key", g.opts.TransactionKey)
	form.Set("x_version", aimVersion)
	form.Set("x_delim_data", "TRUE")
	form.Set("x_delim_char", aimDelimiter)
	form.Set("x_relay_response", "FALSE")
	if g.opts.TestMode {
		form.Set("x_test_request", "TRUE")
	}
	return form
}

func (g *aimGateway) post(ctx context.Context, form url.Values) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}

	fields := strings.Split(strings.TrimSpace(string(body)), aimDelimiter)
	if len(fields) < aimMinFields {
		return nil, fmt.Errorf("%w: %d fields", outbound.ErrMalformedResponse, len(fields))
	}
	return fields, nil
}

func aimResultCode(code string) model.ResultCode {
	switch code {
	case "1":
		return model.ResultApproved
	case "2":
		return model.ResultDeclined
	case "4":
		return model.ResultReview
	default:
		return model.ResultError
	}
}

func aimMethod(m model.PaymentMethod) string {
	if m == model.MethodECheck {
		return "ECHECK"
	}
	return "CC"
}

// formatAmount renders minor units as a two-decimal major-unit string.
func formatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// Compile-time check
var _ outbound.GatewayPort = (*aimGateway)(nil)
