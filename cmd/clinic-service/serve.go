package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/config"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/frontdesk"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/httpapi"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/hub"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/relay"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/seed"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the live queue board and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(serviceName)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.StoreDriver == config.DriverMemory {
		if _, err := seed.SeedDoctors(ctx, st, time.Now().UTC()); err != nil {
			return err
		}
		log.Warn().Msg("memory store in use; data is lost on exit")
	}

	services := frontdesk.NewServices(st, frontdesk.Options{
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		UIDMaxAttempts:         cfg.UIDMaxAttempts,
		Metrics:                telemetry.NewMetrics(),
	})

	board := hub.New()
	publishers := []relay.Publisher{board}
	if cfg.RedisAddr != "" {
		client, err := relay.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		publishers = append(publishers, relay.NewRedisPublisher(client))
		log.Info().Str("addr", cfg.RedisAddr).Msg("relaying queue events to redis")
	}
	worker := relay.New(st, relay.Config{BatchSize: cfg.RelayBatchSize}, publishers...)
	go relay.Start(ctx, cfg.RelayInterval, worker)

	handler := httpapi.NewHandler(services, httpapi.Options{
		StoreTimeout: cfg.StoreTimeout,
		JWTSecret:    cfg.JWTSecret,
		Hub:          board,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.RateLimitPerMinute,
		IPBurst:         cfg.RateLimitBurst,
		DevicePerMinute: cfg.DeviceRateLimitPerMinute,
		DeviceBurst:     cfg.DeviceRateLimitBurst,
	})
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set; role checks are disabled")
	}

	routes := httpapi.AuthMiddleware(cfg.JWTSecret, handler.Routes())
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(routes)), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("store", cfg.StoreDriver).Msg("clinic-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
