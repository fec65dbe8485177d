// Copyright 2026 The Vendasol Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/audit"
	"github.com/vendasol/vendasol/internal/config"
	"github.com/vendasol/vendasol/internal/entity"
	"github.com/vendasol/vendasol/internal/observability/logger"
	"github.com/vendasol/vendasol/internal/observability/metrics"
	"github.com/vendasol/vendasol/internal/observability/tracing"
	"github.com/vendasol/vendasol/internal/session"
	"github.com/vendasol/vendasol/internal/store/memory"
	"github.com/vendasol/vendasol/internal/store/postgres"
	transportHTTP "github.com/vendasol/vendasol/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTELEnabled: cfg.Observability.OTELEnabled,
	})
	slog.Info("starting vendasol record service")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize the record store backend
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize record store", logger.Error(err))
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("record store ready", slog.String("backend", cfg.Store.Backend))

	auditLogger := audit.NewSlogLogger()

	// One repository per entity type, all sharing the declared pattern
	// registry and the same retry policy.
	registry := access.DefaultRegistry()
	retry := entity.RetryConfig{
		MaxRetries:      uint64(cfg.Retry.MaxRetries),
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}
	repositories := make(map[access.Entity]*entity.Repository)
	for _, e := range registry.Entities() {
		repositories[e] = entity.NewRepository(e, registry, store, retry, auditLogger)
	}

	// Session resolution: local verification of provider-issued tokens plus
	// the configured tenant derivation policy.
	verifier, err := newVerifier(cfg)
	if err != nil {
		slog.Error("failed to initialize credential verifier", logger.Error(err))
		os.Exit(1)
	}
	resolver := session.NewResolver(verifier, newTenantPolicy(cfg))

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		resolver,
		registry,
		repositories,
		auditLogger,
		cfg.Identity.CookieName,
		meter,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

// newStore builds the configured record store backend. The memory backend
// serves local development without a database.
func newStore(ctx context.Context, cfg *config.Config) (entity.Store, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), func() {}, nil
	default:
		db, err := postgres.New(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRecordStore(db), db.Close, nil
	}
}

func newVerifier(cfg *config.Config) (*session.JWTVerifier, error) {
	vc := session.JWTVerifierConfig{
		Issuer:      cfg.Identity.Issuer,
		Audience:    cfg.Identity.Audience,
		TenantClaim: cfg.Identity.TenantClaim,
		RoleClaim:   cfg.Identity.RoleClaim,
	}

	if cfg.Identity.JWTSecret != "" {
		vc.HMACSecret = []byte(cfg.Identity.JWTSecret)
		return session.NewJWTVerifier(vc)
	}

	pem, err := os.ReadFile(cfg.Identity.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read public key file: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	vc.PublicKey = key
	return session.NewJWTVerifier(vc)
}

func newTenantPolicy(cfg *config.Config) session.TenantPolicy {
	if cfg.Identity.TenantPolicy == "email_domain" {
		return session.EmailDomainPolicy(cfg.Identity.DomainMap)
	}
	return session.ClaimPolicy()
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
