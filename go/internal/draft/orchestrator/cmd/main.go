package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/kelseyhightower/envconfig"
	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/orchestrator"
	"github.com/mcdev12/draftroom/go/internal/draft/pick"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/draft/stream"
	"github.com/mcdev12/draftroom/go/internal/logging"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type config struct {
	Addr          string        `envconfig:"ORCHESTRATOR_ADDR" default:":8082"`
	Workers       int           `envconfig:"ORCHESTRATOR_WORKERS" default:"10"`
	SweepInterval time.Duration `envconfig:"ORCHESTRATOR_SWEEP_INTERVAL" default:"30s"`
	ClaimTTL      time.Duration `envconfig:"ORCHESTRATOR_CLAIM_TTL" default:"5m"`
	// RedisAddr enables cross-instance turn claims. Empty claims locally.
	RedisAddr string `envconfig:"REDIS_ADDR"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid orchestrator config")
	}
	logging.Setup(cfg.LogLevel, "orchestrator")

	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database config")
	}
	var natsCfg stream.Config
	if err := envconfig.Process("", &natsCfg); err != nil {
		log.Fatal().Err(err).Msg("invalid NATS config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbCfg.OpenPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := clockwork.NewRealClock()
	store := repository.NewPGStore(pool, dbCfg.StoreTimeout)
	picks := pick.NewApp(store, nil, clock, pick.NewPrometheusMetrics(reg))

	var claimer orchestrator.TurnClaimer
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		claimer = orchestrator.NewRedisClaimer(rdb, "")
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis turn claims")
	}

	orch := orchestrator.NewOrchestrator(store, picks, clock, claimer, orchestrator.NewPrometheusMetrics(reg), orchestrator.Config{
		NumWorkers: cfg.Workers,
		ClaimTTL:   cfg.ClaimTTL,
	})

	nc, js, err := stream.Connect(natsCfg, "draft-orchestrator")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()
	if err := stream.EnsureStream(ctx, js, stream.StreamConfig(natsCfg, events.SubjectPrefix)); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure stream")
	}

	// Every instance follows the whole stream; claims decide who escalates.
	consumer, err := stream.NewConsumer(ctx, js, natsCfg.StreamName, stream.ConsumerConfig{
		Description:   "draft orchestrator turn timers",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consumer")
	}

	go func() {
		if err := orch.Run(ctx); err != nil {
			log.Error().Err(err).Msg("orchestrator stopped")
		}
	}()
	go func() {
		if err := consumer.Run(ctx, orch.HandleEvent); err != nil {
			log.Error().Err(err).Msg("event consumer stopped")
			stop()
		}
	}()

	// The first sweep runs immediately and re-arms turns of running drafts.
	sweeper, err := orch.StartSweeper(ctx, cfg.SweepInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil || !nc.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sweeper.Shutdown(); err != nil {
		log.Error().Err(err).Msg("sweeper shutdown failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown failed")
	}
	orch.Close()
	log.Info().Msg("draft orchestrator shutdown complete")
}
