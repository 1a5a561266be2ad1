package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/coursepay/server/internal/model"
)

// GatewayPort is the client contract of an external payment gateway.
type GatewayPort interface {
	// Name returns the gateway name.
	Name() string

	// Process sends a mutating call (capture, credit or void). A decline is
	// reported in the result, not as an error. An error means the outcome is
	// unknown or the call was never sent.
	Process(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error)

	// Settled reports whether the transaction has left the daily batch window.
	Settled(ctx context.Context, txn *model.GatewayTransaction) (bool, error)

	// Expired reports whether an authorization has outlived the hold window.
	Expired(ctx context.Context, txn *model.GatewayTransaction) (bool, error)
}

// SettlementCachePort remembers transactions known to be settled.
type SettlementCachePort interface {
	// SettledAt returns when the transaction was seen settled. Returns nil, nil if unknown.
	SettledAt(ctx context.Context, gateway, transID string) (*time.Time, error)

	// MarkSettled records a settled transaction.
	MarkSettled(ctx context.Context, gateway, transID string, at time.Time) error
}

// Errors returned by gateway adapters.
var (
	// ErrGatewayUnavailable is returned when calls are short-circuited by the breaker.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayTimeout is returned when the gateway did not answer in time.
	ErrGatewayTimeout = errors.New("payment gateway timeout")
	// ErrMalformedResponse is returned when the gateway response cannot be parsed.
	ErrMalformedResponse = errors.New("malformed gateway response")
)
