package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/utils/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	queryAttempts = 2
	resultUnavail = "unavailable"
	resultFailed  = "transport_error"
)

// ResilienceConfig configures the gateway decorator.
type ResilienceConfig struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultResilienceConfig returns the default decorator settings.
func DefaultResilienceConfig() *ResilienceConfig {
	return &ResilienceConfig{
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// resilientGateway adds a timeout, a circuit breaker, a single retry for
// read-only queries and call metrics around a gateway.
type resilientGateway struct {
	next    outbound.GatewayPort
	breaker *gobreaker.CircuitBreaker[any]
	cache   outbound.SettlementCachePort
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewResilientGateway wraps next. cache may be nil.
func NewResilientGateway(
	next outbound.GatewayPort,
	cache outbound.SettlementCachePort,
	m *metrics.Metrics,
	cfg *ResilienceConfig,
	logger *zap.Logger,
) outbound.GatewayPort {
	if cfg == nil {
		cfg = DefaultResilienceConfig()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	g := &resilientGateway{
		next:    next,
		cache:   cache,
		metrics: m,
		timeout: cfg.Timeout,
		logger:  logger.With(zap.String("gateway", next.Name())),
		now:     time.Now,
	}

	g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only transport failures count. A caller giving up is not the gateway's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("gateway circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if g.metrics != nil {
				g.metrics.SetBreakerState(name, int(to))
			}
		},
	})
	return g
}

func (g *resilientGateway) Name() string {
	return g.next.Name()
}

// Process is never retried: the outcome of a failed mutating call is unknown.
func (g *resilientGateway) Process(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	start := time.Now()
	out, err := g.execute(ctx, func(ctx context.Context) (any, error) {
		return g.next.Process(ctx, req)
	})
	if err != nil {
		g.record(string(req.Action), resultLabel(err), start)
		return nil, err
	}
	res := out.(*model.GatewayResult)
	g.record(string(req.Action), string(res.Code), start)
	return res, nil
}

func (g *resilientGateway) Settled(ctx context.Context, txn *model.GatewayTransaction) (bool, error) {
	if g.cache != nil && txn.TransID != "" {
		at, err := g.cache.SettledAt(ctx, g.Name(), txn.TransID)
		if err != nil {
			g.logger.Warn("settlement cache read failed", zap.Error(err))
		} else if at != nil {
			g.cacheHit(true)
			return true, nil
		} else {
			g.cacheHit(false)
		}
	}

	settled, err := g.query(ctx, "settled", func(ctx context.Context) (bool, error) {
		return g.next.Settled(ctx, txn)
	})
	if err != nil {
		return false, err
	}

	if settled && g.cache != nil && txn.TransID != "" {
		if err := g.cache.MarkSettled(ctx, g.Name(), txn.TransID, g.now()); err != nil {
			g.logger.Warn("settlement cache write failed", zap.Error(err))
		}
	}
	return settled, nil
}

func (g *resilientGateway) Expired(ctx context.Context, txn *model.GatewayTransaction) (bool, error) {
	return g.query(ctx, "expired", func(ctx context.Context) (bool, error) {
		return g.next.Expired(ctx, txn)
	})
}

// query runs a read-only call, retrying once on failure.
func (g *resilientGateway) query(ctx context.Context, action string, fn func(ctx context.Context) (bool, error)) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= queryAttempts; attempt++ {
		start := time.Now()
		out, err := g.execute(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
		if err == nil {
			g.record(action, string(model.ResultApproved), start)
			return out.(bool), nil
		}
		g.record(action, resultLabel(err), start)
		lastErr = err

		if errors.Is(err, outbound.ErrGatewayUnavailable) || ctx.Err() != nil {
			break
		}
		g.logger.Debug("gateway query failed", zap.String("action", action), zap.Int("attempt", attempt), zap.Error(err))
	}
	return false, lastErr
}

func (g *resilientGateway) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	out, err := g.breaker.Execute(func() (any, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		out, err := fn(callCtx)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %v", outbound.ErrGatewayTimeout, err)
		}
		return out, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, outbound.ErrGatewayUnavailable
	}
	return out, err
}

func (g *resilientGateway) record(action, result string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordGatewayCall(g.Name(), action, result, time.Since(start))
	}
}

func (g *resilientGateway) cacheHit(hit bool) {
	if g.metrics == nil {
		return
	}
	if hit {
		g.metrics.RecordCacheHit("settlement")
	} else {
		g.metrics.RecordCacheMiss("settlement")
	}
}

func resultLabel(err error) string {
	if errors.Is(err, outbound.ErrGatewayUnavailable) {
		return resultUnavail
	}
	return resultFailed
}

// Compile-time check
var _ outbound.GatewayPort = (*resilientGateway)(nil)
