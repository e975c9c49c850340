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

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/chain"
	"github.com/nebula-protocol/cluster-mint-engine/internal/collab"
	"github.com/nebula-protocol/cluster-mint-engine/internal/metrics"
	"github.com/nebula-protocol/cluster-mint-engine/internal/service"
	"github.com/nebula-protocol/cluster-mint-engine/internal/sim"
	"github.com/nebula-protocol/cluster-mint-engine/internal/store"
)

// serverConfig is the process environment. The engine address is the
// ledger account the engine operates as; the collaborator URLs point at
// the chain-facing sidecars.
type serverConfig struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json or text

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	EngineAddress string `env:"ENGINE_ADDRESS,required"`

	ClusterURL    string `env:"CLUSTER_URL,required"`
	OracleURL     string `env:"ORACLE_URL,required"`
	PenaltyURL    string `env:"PENALTY_URL,required"`
	ExchangeURL   string `env:"EXCHANGE_URL,required"`
	LendingURL    string `env:"LENDING_URL,required"`
	IncentivesURL string `env:"INCENTIVES_URL,required"`
	LedgerURL     string `env:"LEDGER_URL,required"`
}

func main() {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))

	if err := asset.ValidateAddress(cfg.EngineAddress); err != nil {
		slog.Error("invalid ENGINE_ADDRESS", "err", err)
		os.Exit(1)
	}

	// --- Config store ---
	var cfgs store.ConfigStore
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		cfgs = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory config store (setup will not persist)")
		cfgs = store.NewMemoryStore()
	}

	// --- Stage scheduler ---
	var sched chain.Scheduler
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		sched = chain.NewRedisScheduler(rdb)
		slog.Info("Redis stage scheduler enabled")
	} else {
		slog.Warn("REDIS_URL not set, using in-memory scheduler (pending stages will not survive restarts)")
		sched = chain.NewMemoryScheduler()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Collaborator clients ---
	cluster := collab.NewClusterClient(cfg.ClusterURL)
	oracle := collab.NewOracleClient(cfg.OracleURL)
	penalty := collab.NewPenaltyClient(cfg.PenaltyURL)
	exchange := collab.NewExchangeClient(cfg.ExchangeURL)
	lending := collab.NewLendingClient(cfg.LendingURL)
	incentives := collab.NewIncentivesClient(cfg.IncentivesURL)
	ledger := collab.NewLedgerClient(cfg.LedgerURL)

	// --- Progress hub ---
	hub := service.NewProgressHub()
	go hub.Run()

	// --- Engine, worker, simulator ---
	engine := chain.NewEngine(cfgs, cfg.EngineAddress, chain.Deps{
		Cluster:    cluster,
		Exchange:   exchange,
		Lending:    lending,
		Incentives: incentives,
		Ledger:     ledger,
	}, sched, hub.Broadcast)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go chain.NewWorker(engine).Run(workerCtx)

	simulator := sim.New(cfgs, cluster, oracle, penalty, exchange, ledger)

	svc := service.NewService(cfgs, engine, simulator)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"cluster-mint-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time stage progress.
		r.Get("/ws", hub.HandleWS)

		r.Post("/setup", svc.Setup)
		r.Post("/mint", svc.Mint)
		r.Get("/simulate", svc.Simulate)

		// Loopback delivery for the scheduler; self-only.
		r.Post("/internal/collect", svc.Collect)
		r.Post("/internal/forward", svc.Forward)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("cluster-mint-engine listening", "port", cfg.Port, "engine", cfg.EngineAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down cluster-mint-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("cluster-mint-engine stopped")
}
