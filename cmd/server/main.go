// Command server wires the verification engine behind HTTP. Business
// logic lives in internal/verification; main only selects backends from
// configuration and manages the server lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veriterra/internal/platform/config"
	"veriterra/internal/platform/httpserver"
	"veriterra/internal/platform/middleware"
	platformredis "veriterra/internal/platform/redis"
	"veriterra/internal/verification/adapter"
	"veriterra/internal/verification/consensus"
	"veriterra/internal/verification/dispatch"
	"veriterra/internal/verification/evaluator"
	"veriterra/internal/verification/handler"
	"veriterra/internal/verification/lock"
	"veriterra/internal/verification/metrics"
	"veriterra/internal/verification/ports"
	"veriterra/internal/verification/session"
	"veriterra/internal/verification/store/verdict"
	"veriterra/pkg/platform/audit/publisher"
	auditstore "veriterra/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Verdict store: PostgreSQL when configured, in-memory otherwise.
	var verdictStore ports.VerdictStore
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			logger.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := verdict.NewPostgres(db)
		if err := pg.Migrate(context.Background()); err != nil {
			logger.Error("migrate verdict store", "error", err)
			os.Exit(1)
		}
		verdictStore = pg
	} else {
		logger.Warn("no postgres configured, verdicts are not durable")
		verdictStore = verdict.NewMemory()
	}

	// Project lock: Redis when configured, in-process otherwise.
	var locker ports.ProjectLocker
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient.Client)
	} else {
		logger.Warn("no redis configured, project locks are process-local")
		locker = lock.NewMemory()
	}

	// Dispatcher: Kafka when configured, structured log otherwise.
	var dispatcher ports.Dispatcher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := dispatch.NewKafka(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		dispatcher = kafka
	} else {
		logger.Warn("no kafka configured, verdict dispatch goes to the log")
		dispatcher = dispatch.NewLog(logger)
	}

	auditor := publisher.NewPublisher(auditstore.NewInMemoryStore(),
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(logger),
	)
	defer auditor.Close()

	policy := evaluator.Default()
	if cfg.Policy.PassConfidence != nil {
		policy.PassConfidence = *cfg.Policy.PassConfidence
	}
	if cfg.Policy.FailConfidence != nil {
		policy.FailConfidence = *cfg.Policy.FailConfidence
	}
	if cfg.Policy.CarbonTolerance != nil {
		policy.CarbonTolerance = *cfg.Policy.CarbonTolerance
	}

	svc, err := session.New(
		adapter.New(),
		evaluator.ForPolicy(policy),
		consensus.New(consensus.DefaultTolerances()),
		verdictStore,
		locker,
		session.WithLogger(logger),
		session.WithMetrics(metrics.New()),
		session.WithDispatcher(dispatcher),
		session.WithAudit(auditor),
	)
	if err != nil {
		logger.Error("build verification service", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.JWTSigningKey, logger))
		handler.New(svc, logger).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		logger.Info("starting veriterra verification engine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
