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
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/lifecycle"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/draft/stream"
	"github.com/mcdev12/draftroom/go/internal/logging"
)

type config struct {
	Port           string   `envconfig:"GATEWAY_PORT" default:"8081"`
	AllowedOrigins []string `envconfig:"GATEWAY_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	SendBuffer     int      `envconfig:"GATEWAY_SEND_BUFFER" default:"256"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid gateway config")
	}
	logging.Setup(cfg.LogLevel, "gateway")

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

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", natsCfg.URL).
		Str("port", cfg.Port).
		Msg("starting draft gateway")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := clockwork.NewRealClock()
	drafts := lifecycle.NewApp(repository.NewPGStore(pool, dbCfg.StoreTimeout), clock)

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.SendBuffer = cfg.SendBuffer
	gatewayService := gateway.NewService(connCfg, drafts, clock, gateway.NewPrometheusMetrics(reg))

	nc, js, err := stream.Connect(natsCfg, "draft-gateway")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()
	if err := stream.EnsureStream(ctx, js, stream.StreamConfig(natsCfg, events.SubjectPrefix)); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure stream")
	}
	// Each gateway instance needs every event for its own subscribers, and
	// new connections start from a snapshot, so history is not replayed.
	consumer, err := stream.NewConsumer(ctx, js, natsCfg.StreamName, stream.ConsumerConfig{
		Description:   "draft gateway fan-out",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consumer")
	}
	go func() {
		if err := consumer.Run(ctx, gatewayService.HandleEvent); err != nil {
			log.Error().Err(err).Msg("event consumer stopped")
			stop()
		}
	}()

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil || !nc.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     corsHandler.Handler(mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Hijacked WebSocket connections are not closed by Shutdown.
	gatewayService.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("draft gateway shutdown complete")
}
