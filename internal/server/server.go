package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/di"
	"github.com/waranyu/saas-admin-platform/internal/events"
	"github.com/waranyu/saas-admin-platform/internal/service"
	"github.com/waranyu/saas-admin-platform/pkg/config"
	"github.com/waranyu/saas-admin-platform/pkg/database"
	"github.com/waranyu/saas-admin-platform/pkg/logger"
	"github.com/waranyu/saas-admin-platform/pkg/middleware"
	"github.com/waranyu/saas-admin-platform/pkg/redis"
	"github.com/waranyu/saas-admin-platform/pkg/telemetry"
)

// Server owns the HTTP listener and every backing dependency.
type Server struct {
	cfg         *config.Config
	httpServer  *http.Server
	db          *database.PostgresDB
	redis       *redis.Client
	publisher   events.Publisher
	auditLogger *middleware.AuditLogger
}

// New builds the server: connects Postgres, Redis and Kafka, validates the
// permission registry, and wires the router. A malformed registry is a
// startup failure, not a per-request 500.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	redisClient, err := redis.New(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	var publisher events.Publisher = events.NewNopPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(ctx, events.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		}, logger.Get())
		if err != nil {
			redisClient.Close()
			db.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		publisher = kafkaPublisher
	}

	registry := NewRegistry()
	if err := registry.Validate(); err != nil {
		publisher.Close()
		redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("permission registry: %w", err)
	}

	decisions, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "authz_decisions_total",
		Description: "Authorization decisions by operation, resource and outcome",
	})
	if err != nil {
		logger.Warn("failed to create decision counter", zap.Error(err))
	}

	guard := middleware.Guard(middleware.GuardConfig{
		Registry:  registry,
		Engine:    authz.NewEngine(authz.DefaultGrants()),
		Publisher: publisher,
		Decisions: decisions,
	})

	auditLogger := middleware.NewAuditLogger(middleware.DefaultAuditConfig(db.Pool()))

	container := di.NewContainer(&di.ContainerConfig{
		DB:        db,
		Redis:     redisClient,
		Publisher: publisher,
		AuthConfig: service.AuthConfig{
			JWTSecret:       cfg.JWT.Secret,
			AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
			RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		},
	})

	router := NewRouter(&RouterConfig{
		Container:   container,
		JWTSecret:   cfg.JWT.Secret,
		Guard:       guard,
		AuditLogger: auditLogger,
		Development: cfg.IsDevelopment(),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		cfg:         cfg,
		httpServer:  httpServer,
		db:          db,
		redis:       redisClient,
		publisher:   publisher,
		auditLogger: auditLogger,
	}, nil
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, flushes the audit buffer and pending
// events, then releases every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	s.auditLogger.Close()
	s.publisher.Close()
	s.redis.Close()
	s.db.Close()

	return err
}
