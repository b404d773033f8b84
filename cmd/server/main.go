package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"snowflake/internal/admin"
	"snowflake/internal/identity"
	identityhandler "snowflake/internal/identity/handler"
	identitymetrics "snowflake/internal/identity/metrics"
	"snowflake/internal/identity/service"
	jwttoken "snowflake/internal/jwt_token"
	"snowflake/internal/platform/config"
	"snowflake/internal/platform/httpserver"
	"snowflake/internal/platform/logger"
	platformmetrics "snowflake/internal/platform/metrics"
	platformotel "snowflake/internal/platform/otel"
	"snowflake/internal/ratelimit"
	request "snowflake/pkg/platform/middleware/request"
	"snowflake/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := platformotel.Setup(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Process collectors and package-level promauto metrics live on the
	// default registry; service metrics on reg.
	reg := prometheus.NewRegistry()
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}

	deps, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close(log)
	if deps.redis != nil {
		if err := deps.redis.RegisterPoolMetrics(reg); err != nil {
			return err
		}
	}

	registry, err := identity.NewService(deps.store, deps.tx, deps.directory,
		service.WithLogger(log),
		service.WithAuditPublisher(deps.publisher),
		service.WithMetrics(identitymetrics.NewWithRegisterer(reg)),
		service.WithFeeCharger(deps.fees),
		service.WithTracer(otel.Tracer("snowflake/identity")),
		service.WithDigestLength(cfg.Registry.DigestLength),
	)
	if err != nil {
		return fmt.Errorf("build registry service: %w", err)
	}

	adminOpts := []admin.Option{
		admin.WithLogger(log),
		admin.WithAuditPublisher(deps.publisher),
		admin.WithAuditTrail(deps.publisher),
	}
	if deps.ledger != nil {
		adminOpts = append(adminOpts, admin.WithLedger(deps.ledger))
	}
	adminService := admin.NewService(deps.directory, adminOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	httpMetrics := platformmetrics.NewWithRegisterer(reg)
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.LatencyMiddleware)

	r.Get("/healthz", deps.healthHandler(log))
	r.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))

	limits := rateLimitMiddleware(cfg.RateLimit, deps, log, reg)
	identity.NewHandler(registry, log, jwttoken.NewJWTServiceAdapter(jwtService),
		identityhandler.WithReadLimit(limits.RateLimit(ratelimit.ClassRead)),
		identityhandler.WithWriteLimit(limits.RateLimit(ratelimit.ClassWrite)),
	).Register(r)
	admin.NewHandler(adminService, log, cfg.AdminToken).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting snowflake registry", "addr", cfg.Addr, "backend", deps.backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		log.Info("shutting down", "grace", cfg.ShutdownGrace)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
