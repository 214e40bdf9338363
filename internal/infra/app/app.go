package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/core/port"
	"github.com/k-chan22/DeteXTB-System/internal/infra/config"
	"github.com/k-chan22/DeteXTB-System/internal/infra/database"
	kafkainfra "github.com/k-chan22/DeteXTB-System/internal/infra/kafka"
	"github.com/k-chan22/DeteXTB-System/internal/infra/logger"
	"github.com/k-chan22/DeteXTB-System/internal/infra/metrics"
	redisinfra "github.com/k-chan22/DeteXTB-System/internal/infra/redis"
	"github.com/k-chan22/DeteXTB-System/internal/infra/security"
	smtpinfra "github.com/k-chan22/DeteXTB-System/internal/infra/smtp"
	postgresrepo "github.com/k-chan22/DeteXTB-System/internal/repository/postgres"
	redisrepo "github.com/k-chan22/DeteXTB-System/internal/repository/redis"
	"github.com/k-chan22/DeteXTB-System/internal/usecase"
)

// Core wires the authentication services and their infrastructure together
// for consumption by a UI layer. It owns the connection pools and the Kafka
// producer; Close releases them.
type Core struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	registry *prometheus.Registry

	Auth    *usecase.AuthService
	Lockout *usecase.LockoutService
	Reset   *usecase.PasswordResetService
}

// New constructs the authentication core from configuration. Kafka and Redis
// are optional: without brokers events go to a logging stub, and without a
// reachable Redis the reset flow runs unthrottled.
func New(ctx context.Context, cfg *config.AppConfig) (*Core, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	core := &Core{
		cfg:      cfg,
		logger:   log,
		pool:     pool,
		registry: prometheus.NewRegistry(),
	}

	directory := postgresrepo.NewDirectoryRepository(pool)
	notifier := smtpinfra.NewMailer(cfg.SMTP, log)
	authMetrics := metrics.New(core.registry)

	var rateLimits port.RateLimitStore
	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, reset requests run unthrottled", zap.Error(err))
	} else {
		core.redis = redisClient
		rateLimits = redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.RateLimitPrefix, cfg.RateLimit.WindowDuration)
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			core.producer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var tokenIssuer *security.SessionTokenIssuer
	if cfg.Auth.SessionTokenSecret != "" {
		tokenIssuer, err = security.NewSessionTokenIssuer(cfg.Auth.SessionTokenSecret, cfg.App.Name, cfg.Auth.SessionTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("init session token issuer: %w", err)
		}
	} else {
		log.Warn("session token secret not configured, logins return no token")
	}

	matcher := security.PlaintextMatcher{}
	validator := security.NewPasswordValidator(security.MinLengthRule(cfg.Auth.MinPasswordLength))

	core.Auth = usecase.NewAuthService(cfg, directory, matcher, notifier, eventPublisher, tokenIssuer, authMetrics, log)
	core.Lockout = usecase.NewLockoutService(directory, log)
	core.Reset = usecase.NewPasswordResetService(cfg, directory, matcher, notifier, rateLimits, eventPublisher, validator, authMetrics, log)

	log.Info("authentication core initialized", zap.String("env", cfg.App.Env))

	return core, nil
}

// NewSession creates the per-UI-session context handed into every operation.
func (c *Core) NewSession() *domain.SessionContext {
	return domain.NewSessionContext()
}

// Registry exposes the metrics registry for an HTTP scrape endpoint.
func (c *Core) Registry() *prometheus.Registry {
	return c.registry
}

// Logger exposes the shared logger for the embedding surface.
func (c *Core) Logger() *zap.Logger {
	return c.logger
}

// Close releases the pools and the producer. Safe to call once during
// shutdown.
func (c *Core) Close(ctx context.Context) error {
	var errs []error

	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.pool != nil {
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if c.logger != nil {
		_ = c.logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("close core: %v", errs)
	}
	return nil
}
