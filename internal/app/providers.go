package app

import (
	"context"
	"fmt"

	ginadapter "github.com/coursepay/server/internal/adapter/inbound/gin"
	"github.com/coursepay/server/internal/adapter/outbound/alert"
	"github.com/coursepay/server/internal/adapter/outbound/gateway"
	"github.com/coursepay/server/internal/adapter/outbound/kafka"
	"github.com/coursepay/server/internal/adapter/outbound/memory"
	"github.com/coursepay/server/internal/adapter/outbound/oauth"
	"github.com/coursepay/server/internal/adapter/outbound/postgres"
	redisadapter "github.com/coursepay/server/internal/adapter/outbound/redis"
	"github.com/coursepay/server/internal/adapter/outbound/s3"
	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/infra/events"
	"github.com/coursepay/server/internal/infra/httpclient"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/shared/cache"
	"github.com/coursepay/server/internal/shared/config"
	"github.com/coursepay/server/internal/shared/database"
	"github.com/coursepay/server/internal/shared/logger"
	"github.com/coursepay/server/internal/utils/cutoff"
	"github.com/coursepay/server/internal/utils/metrics"
	"github.com/coursepay/server/internal/utils/middleware"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideZapLogger,
	ProvideDatabase,
	ProvideRedisClient,
	ProvideMetrics,
	ProvideEventBus,
)

// ProvideZapLogger creates the application logger.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

// ProvideDatabase opens the database and applies migrations when enabled.
func ProvideDatabase(cfg *config.Config, zapLog *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.New(&cfg.Database, zapLog.Named("gorm"))
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	if !cfg.Database.AutoMigrate {
		return db, func() { _ = database.Close(db) }, nil
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, func() { _ = database.Close(db) }, nil
}

// ProvideRedisClient creates a Redis client. It returns nil when Redis is
// not configured or unreachable.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (goredis.UniversalClient, func()) {
	if cfg.Redis.Address == "" {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		zapLog.Warn("Redis connection failed, continuing without it", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

// ProvideMetrics creates a metrics instance.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("coursepay")
}

// ProvideEventBus creates the domain event bus and attaches the Kafka
// forwarder when brokers are configured.
func ProvideEventBus(cfg *config.Config, zapLog *zap.Logger) (*events.Bus, func(), error) {
	bus := events.NewBus(zapLog)
	if len(cfg.Kafka.Brokers) == 0 {
		return bus, func() {}, nil
	}

	producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
	if err != nil {
		return nil, nil, fmt.Errorf("init kafka producer: %w", err)
	}
	forwarder := kafka.NewForwarder(producer, cfg.Kafka.Topic, zapLog)
	bus.Register(forwarder)
	return bus, func() { _ = forwarder.Close() }, nil
}

// ===== Gateway Providers =====

// GatewaySet provides the payment gateway stack.
var GatewaySet = wire.NewSet(
	ProvideCutoff,
	ProvideSettlementCache,
	ProvideGateway,
)

// ProvideCutoff parses the daily settlement cutoff.
func ProvideCutoff(cfg *config.Config) (cutoff.Schedule, error) {
	return cutoff.Parse(cfg.Payments.Cutoff, cfg.Payments.Timezone)
}

// ProvideSettlementCache returns the Redis settlement cache, or nil.
func ProvideSettlementCache(redis goredis.UniversalClient) outbound.SettlementCachePort {
	if redis == nil {
		return nil
	}
	return redisadapter.NewSettlementCache(redis)
}

// ProvideGateway builds the configured gateway behind the resilience decorator.
func ProvideGateway(
	cfg *config.Config,
	schedule cutoff.Schedule,
	settlements outbound.SettlementCachePort,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) (outbound.GatewayPort, error) {
	client := httpclient.New(cfg.HTTPClient, cfg.Gateway.Timeout)

	var gw outbound.GatewayPort
	switch cfg.Gateway.Provider {
	case "aim":
		aim := cfg.Gateway.AIM
		gw = gateway.NewAIMGateway(gateway.NewAIMHTTPClient(client, aim.OAuth), gateway.AIMOptions{
			Endpoint:       aim.Endpoint,
			LoginID:        aim.LoginID,
			TransactionKey: aim.TransactionKey,
			TestMode:       aim.TestMode,
			Cutoff:         schedule,
			ExpiryWindow:   cfg.Payments.ExpiryWindow,
		})
	case "stripe":
		gw = gateway.NewStripeGateway(client, gateway.StripeOptions{
			SecretKey: cfg.Gateway.Stripe.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Gateway.Provider)
	}

	return gateway.NewResilientGateway(gw, settlements, m, &gateway.ResilienceConfig{
		Timeout:          cfg.Gateway.Timeout,
		FailureThreshold: cfg.Gateway.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Gateway.Breaker.OpenTimeout,
	}, zapLog), nil
}

// ===== Order Domain Providers =====

// OrderSet provides the order domain and its adapters.
var OrderSet = wire.NewSet(
	postgres.NewOrderAdapter,
	postgres.NewRefundAdapter,
	postgres.NewUnitOfWork,
	postgres.NewIncidentAdapter,
	ProvideConfirmationTokens,
	ProvideIncidentArchive,
	ProvideAlerter,
	ProvidePolicy,
	ProvideOrderDomain,
)

// ProvideConfirmationTokens stores tokens in Redis, or in process memory
// when Redis is not available.
func ProvideConfirmationTokens(redis goredis.UniversalClient, zapLog *zap.Logger) outbound.ConfirmationTokenPort {
	if redis == nil {
		zapLog.Warn("Confirmation tokens are kept in memory; run a single replica")
		return memory.NewConfirmationStore()
	}
	return redisadapter.NewConfirmationStore(redis)
}

// ProvideIncidentArchive returns the S3 incident archive, or nil when no
// bucket is configured.
func ProvideIncidentArchive(cfg *config.Config) (outbound.IncidentArchivePort, error) {
	if cfg.Storage.Bucket == "" {
		return nil, nil
	}
	client, err := s3.NewClient(context.Background(), &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init incident archive: %w", err)
	}
	return s3.NewIncidentArchive(client, cfg.Storage.Bucket, cfg.Storage.IncidentPrefix), nil
}

// ProvideAlerter creates the reconciliation alerter.
func ProvideAlerter(
	incidents outbound.IncidentDatabasePort,
	archive outbound.IncidentArchivePort,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) outbound.ReconciliationAlertPort {
	return alert.NewAlerter(incidents, archive, m, zapLog)
}

// ProvidePolicy creates the settlement and expiry policy.
func ProvidePolicy(cfg *config.Config, schedule cutoff.Schedule) *order.Policy {
	return order.NewPolicy(order.PolicyConfig{
		ExpiryWindow:          cfg.Payments.ExpiryWindow,
		NewOrderGrace:         cfg.Payments.NewOrderGrace,
		Cutoff:                schedule,
		ReviewFailedDeletable: cfg.Payments.AllowReviewFailedDelete,
	})
}

// ProvideOrderDomain creates the order domain.
func ProvideOrderDomain(
	cfg *config.Config,
	orderDB outbound.OrderDatabasePort,
	refundDB outbound.RefundDatabasePort,
	uow outbound.UnitOfWorkPort,
	gw outbound.GatewayPort,
	tokens outbound.ConfirmationTokenPort,
	alerts outbound.ReconciliationAlertPort,
	bus *events.Bus,
	policy *order.Policy,
	zapLog *zap.Logger,
) order.OrderDomain {
	return order.NewOrderDomain(orderDB, refundDB, uow, gw, tokens, alerts, bus, policy, &order.Config{
		ConfirmationTTL:    cfg.Payments.ConfirmationTTL,
		DefaultPageSize:    cfg.Payments.DefaultPageSize,
		MaxPageSize:        cfg.Payments.MaxPageSize,
		ReconcileBatchSize: cfg.Payments.ReconcileBatchSize,
	}, zapLog.Named("order"))
}

// ===== HTTP Providers =====

// HTTPSet provides HTTP layer dependencies.
var HTTPSet = wire.NewSet(
	ProvideAccessTokens,
	ProvideAdminSet,
	ProvideRateLimiter,
	ginadapter.NewOrderHandler,
	ginadapter.NewAdminHandler,
)

// ProvideAccessTokens creates the bearer token validator.
func ProvideAccessTokens(cfg *config.Config) outbound.AccessTokenPort {
	return oauth.NewJWTManager(&oauth.JWTConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	})
}

// ProvideAdminSet returns the users holding manage-payments everywhere.
func ProvideAdminSet(cfg *config.Config) middleware.AdminSet {
	return middleware.NewAdminSet(cfg.AccessControl.AdminUserIDs)
}

// ProvideRateLimiter creates the Redis rate limiter, or nil.
func ProvideRateLimiter(redis goredis.UniversalClient) outbound.RateLimiterPort {
	if redis == nil {
		return nil
	}
	return redisadapter.NewRateLimiter(redis)
}

// AppSet is the complete provider set.
var AppSet = wire.NewSet(
	InfraSet,
	GatewaySet,
	OrderSet,
	HTTPSet,
)
