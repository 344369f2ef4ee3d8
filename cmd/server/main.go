package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmlink-be/internal/cache"
	"farmlink-be/internal/config"
	"farmlink-be/internal/db"
	"farmlink-be/internal/feedback"
	"farmlink-be/internal/logger"
	"farmlink-be/internal/metrics"
	"farmlink-be/internal/middleware"
	"farmlink-be/internal/notification"
	"farmlink-be/internal/order"
	"farmlink-be/internal/payment"
	"farmlink-be/internal/product"
	"farmlink-be/internal/settings"
	"farmlink-be/internal/transport"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, "farmlink")
	if err != nil {
		logger.L().Warn("redis unavailable, order list cache disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		store = nil
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(cfg, database, store),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return startServerFunc(ctx, srv)
}

// newServer wires repositories, services and the middleware chain.
func newServer(cfg *config.Config, database *sql.DB, store *cache.Store) http.Handler {
	productRepo := product.NewRepository(database)
	orderRepo := order.NewRepository(database)

	notificationSvc := notification.NewService(notification.NewRepository(database))
	settingsSvc := settings.NewService(settings.NewRepository(database), cfg.CommissionRate)

	orderSvc := order.NewService(orderRepo, settingsSvc, notificationSvc, order.ServiceConfig{
		CodeLength: cfg.DeliveryCodeLength,
		Cache:      store,
		CacheTTL:   cfg.OrderCacheTTL,
		Metrics:    metrics.NewRegistry(),
	})

	feedbackSvc := feedback.NewService(feedback.NewRepository(database), orderRepo, productRepo, notificationSvc)
	payoutSvc := payment.NewService(payment.NewRepository(database))

	mux := transport.New(transport.Services{
		Orders:        orderSvc,
		Products:      product.NewService(productRepo),
		Feedback:      feedbackSvc,
		Payouts:       payoutSvc,
		Notifications: notificationSvc,
		Settings:      settingsSvc,
		DB:            database,
	}, 0).Routes()

	var h http.Handler = mux
	h = middleware.RateLimitMiddleware(h)
	h = middleware.Auth(cfg.JWTSecret)(h)
	h = middleware.CORS(cfg.CORSOrigin)(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}

// startServer serves until ctx is cancelled, then drains in-flight requests.
func startServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.L().Info("server listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
