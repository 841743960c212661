package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/outbox"
	"github.com/mcdev12/draftroom/go/internal/draft/stream"
	"github.com/mcdev12/draftroom/go/internal/logging"
)

type config struct {
	Addr string `envconfig:"OUTBOX_ADDR" default:":8083"`
	// Publisher is "jetstream" or "log".
	Publisher      string        `envconfig:"OUTBOX_PUBLISHER" default:"jetstream"`
	RabbitMQURL    string        `envconfig:"RABBITMQ_URL"`
	RabbitExchange string        `envconfig:"RABBITMQ_EXCHANGE" default:"draft.events"`
	StuckThreshold time.Duration `envconfig:"OUTBOX_STUCK_THRESHOLD" default:"2m"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid outbox config")
	}
	logging.Setup(cfg.LogLevel, "outbox")

	var relayCfg outbox.Config
	if err := envconfig.Process("", &relayCfg); err != nil {
		log.Fatal().Err(err).Msg("invalid relay config")
	}
	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database config")
	}

	dsn := dbCfg.DSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		publishers outbox.Fanout
		busUp      func() bool
	)
	switch cfg.Publisher {
	case "jetstream":
		var natsCfg stream.Config
		if err := envconfig.Process("", &natsCfg); err != nil {
			log.Fatal().Err(err).Msg("invalid NATS config")
		}
		nc, js, err := stream.Connect(natsCfg, "draft-outbox")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()
		if err := stream.EnsureStream(ctx, js, stream.StreamConfig(natsCfg, events.SubjectPrefix)); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure stream")
		}
		publishers = append(publishers, outbox.NewJetStreamPublisher(js))
		busUp = nc.IsConnected
	case "log":
		publishers = append(publishers, outbox.LogPublisher{})
	default:
		log.Fatal().Str("publisher", cfg.Publisher).Msg("unknown publisher")
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer conn.Close()
		rabbit, err := outbox.NewRabbitMQPublisher(conn, cfg.RabbitExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create RabbitMQ publisher")
		}
		defer rabbit.Close()
		publishers = append(publishers, rabbit)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := clockwork.NewRealClock()
	repo := outbox.NewRepository(db)
	relay := outbox.NewRelay(repo, publishers, outbox.NewPrometheusMetrics(reg), clock, relayCfg)

	listener, err := outbox.NewListener(dsn, relay, relayCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox listener")
	}

	mux := http.NewServeMux()
	mux.Handle("/health", outbox.NewHealthChecker(relay, repo, listener, busUp, clock, cfg.StuckThreshold))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("starting realtime listener")
		errCh <- listener.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		// Start returns once the in-flight drain finishes.
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			log.Warn().Msg("listener did not stop in time")
		}
	case err := <-errCh:
		log.Error().Err(err).Msg("listener exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown failed")
	}
	log.Info().Msg("graceful shutdown complete")
}
