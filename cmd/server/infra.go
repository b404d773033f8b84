package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"snowflake/internal/fees"
	"snowflake/internal/identity/service"
	identitystore "snowflake/internal/identity/store"
	"snowflake/internal/platform/config"
	"snowflake/internal/platform/postgres"
	"snowflake/internal/platform/redis"
	"snowflake/internal/raindrop"
	"snowflake/internal/ratelimit"
	dErrors "snowflake/pkg/domain-errors"
	audit "snowflake/pkg/platform/audit"
	"snowflake/pkg/platform/audit/kafka"
	"snowflake/pkg/platform/audit/publisher"
	auditmemory "snowflake/pkg/platform/audit/store/memory"
	auditpostgres "snowflake/pkg/platform/audit/store/postgres"
	"snowflake/pkg/platform/httputil"
)

// infra holds the backends selected by configuration. Unset URLs fall back to
// in-memory implementations.
type infra struct {
	backend   string
	db        *sql.DB
	redis     *redis.Client
	sink      *kafka.Sink
	store     identitystore.Store
	tx        identitystore.Tx
	directory raindrop.Directory
	fees      service.FeeCharger
	ledger    *fees.Ledger
	publisher *publisher.Publisher
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	deps := &infra{backend: "memory"}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	deps.db = db

	var auditStore audit.Store
	if db != nil {
		if err := identitystore.Migrate(ctx, db); err != nil {
			deps.Close(log)
			return nil, err
		}
		pgAudit := auditpostgres.New(db)
		if err := pgAudit.Migrate(ctx); err != nil {
			deps.Close(log)
			return nil, err
		}
		st := identitystore.NewPostgres(db, identitystore.WithPostgresTxTimeout(cfg.Registry.TxTimeout))
		deps.store, deps.tx, auditStore = st, st, pgAudit
		deps.backend = "postgres"
	} else {
		st := identitystore.NewInMemory(identitystore.WithTxTimeout(cfg.Registry.TxTimeout))
		deps.store, deps.tx, auditStore = st, st, auditmemory.NewInMemoryStore()
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		deps.Close(log)
		return nil, err
	}
	if rdb != nil {
		deps.redis = rdb
		deps.directory = raindrop.NewRedisDirectory(rdb.Client)
	} else {
		deps.directory = raindrop.NewInMemoryDirectory()
	}

	if cfg.Registry.MintFee > 0 {
		deps.ledger = fees.NewLedger(cfg.Registry.MintFee)
		deps.fees = deps.ledger
	} else {
		deps.fees = fees.NoFee{}
	}

	pubOpts := []publisher.Option{publisher.WithLogger(log), publisher.WithAsyncBuffer(cfg.Audit.Buffer)}
	if len(cfg.Audit.Brokers) > 0 {
		sink, err := kafka.NewSink(cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			deps.Close(log)
			return nil, err
		}
		deps.sink = sink
		if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
			log.Warn("audit topic not ensured", "error", err, "topic", cfg.Audit.Topic)
		}
		pubOpts = append(pubOpts, publisher.WithSinks(sink))
	}
	deps.publisher = publisher.NewPublisher(auditStore, pubOpts...)
	return deps, nil
}

// rateLimitMiddleware shares windows through Redis when configured.
func rateLimitMiddleware(cfg config.RateLimitConfig, d *infra, log *slog.Logger, reg prometheus.Registerer) *ratelimit.Middleware {
	var store ratelimit.Store = ratelimit.NewInMemoryStore()
	if d.redis != nil {
		store = ratelimit.NewRedisStore(d.redis.Client)
	}
	limiter := ratelimit.NewLimiter(store, ratelimit.Limits{
		Read:  ratelimit.Limit{Requests: cfg.ReadRequests, Window: cfg.Window},
		Write: ratelimit.Limit{Requests: cfg.WriteRequests, Window: cfg.Window},
	},
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimit.NewMetrics(reg)),
	)
	return ratelimit.NewMiddleware(limiter, log, ratelimit.WithDisabled(cfg.Disabled))
}

// healthHandler reports unhealthy when a configured backend is unreachable.
func (d *infra) healthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]func(context.Context) error{}
		if d.db != nil {
			checks["postgres"] = d.db.PingContext
		}
		if d.redis != nil {
			checks["redis"] = d.redis.Health
		}
		if d.sink != nil {
			checks["kafka"] = d.sink.Ping
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WarnContext(ctx, "health check failed", "backend", name, "error", err)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("%s unavailable", name)))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": d.backend})
	}
}

// Close drains the audit publisher before closing the backends it writes to.
func (d *infra) Close(log *slog.Logger) {
	if d.publisher != nil {
		d.publisher.Close()
	}
	if d.sink != nil {
		d.sink.Close()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn("postgres close failed", "error", err)
		}
	}
}
