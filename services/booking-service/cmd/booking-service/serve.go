package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/noshow"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

const maxBodyBytes = 1 << 20

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC APIs with the outbox publisher and no-show sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if s.JWTSecret == "" {
				return errors.New("JWT_SECRET is required to serve the admin API")
			}
			return serve(cmd.Context(), s)
		},
	}
}

func serve(parent context.Context, s settings) error {
	logger := runtime.NewLogger(s.Service)

	ctx, stop := runtime.SignalContext(parent)
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(s.Service)
	if err != nil {
		return err
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, s.DatabaseURL, db.WithMaxConns(int32(s.DBMaxConns)), db.WithQueryTracing())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	c := buildCore(pool, logger, s)

	publisher := outbox.NewPublisher(pool, c.outbox, logger, outbox.PublisherConfig{
		Brokers:   s.Brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	sweeper := noshow.NewWorker(c.scheduler, logger, noshow.WorkerConfig{
		Interval: s.NoShowInterval,
		Grace:    s.NoShowGrace,
	})
	go sweeper.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(s.Brokers), Optional: true},
	}
	var limiter httpx.Limiter = httpx.NewRateLimiter(s.PublicRateLimit, time.Minute)
	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, s.PublicRateLimit, time.Minute, "booking:public")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb), Optional: true})
	} else {
		logger.Warn("REDIS_ADDR not set; public rate limit is per instance")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	bookingHandler := handlers.NewBookingHandler(c.scheduler, c.slots, logger, handlers.Config{
		Location:  s.Location,
		Guest:     s.Guest,
		MinNotice: s.Policy.MinNotice,
	})
	public := httpx.RateLimit(limiter, logger, true)
	admin := func(next http.Handler) http.Handler {
		return httpx.Chain(next, auth.RequireAuth(s.JWTSecret), auth.RequireRole("owner", "admin", "staff"))
	}
	bookingHandler.Register(mux, public, admin)
	manager := func(next http.Handler) http.Handler {
		return httpx.Chain(next, auth.RequireAuth(s.JWTSecret), auth.RequireRole("owner", "admin"))
	}
	handlers.NewScheduleHandler(c.schedules, s.Location, logger).Register(mux, manager)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: s.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader, "Retry-After"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(maxBodyBytes),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + s.HTTPPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+s.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv, health := grpcx.NewServer(logger)
	grpcserver.Register(grpcSrv, c.scheduler, c.slots, s.Location, logger)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "timezone", s.Location.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	stopGRPC(shutdownCtx, grpcSrv, logger)
	logger.Info("servers stopped")
	return nil
}

type gracefulServer interface {
	GracefulStop()
	Stop()
}

func stopGRPC(ctx context.Context, srv gracefulServer, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("grpc graceful stop timed out; forcing")
		srv.Stop()
	}
}
