// Command orderd serves the order orchestrator.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/app"
	"github.com/minutmaidman/shopcore/internal/clock"
	"github.com/minutmaidman/shopcore/internal/config"
	"github.com/minutmaidman/shopcore/internal/storage/memory"
	"github.com/minutmaidman/shopcore/internal/storage/postgres"
	transporthttp "github.com/minutmaidman/shopcore/internal/transport/http"
	"github.com/minutmaidman/shopcore/internal/upstream"
	"github.com/minutmaidman/shopcore/internal/worker"
	"github.com/minutmaidman/shopcore/migrations"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.LoadEnvFile(logger)
	cfg := config.LoadOrderd()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store app.OrderStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect to db", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}

		store = postgres.NewOrderRepository(pool)
		logger.Info("using postgres order store")
	} else {
		store = memory.NewOrderStore()
		logger.Info("using in-memory order store")
	}

	cartClient := upstream.NewCartClient(cfg.CartURL, cfg.UpstreamTimeout, cfg.UpstreamRetries, logger)
	stockClient := upstream.NewStockClient(cfg.StockURL, cfg.UpstreamTimeout, cfg.UpstreamRetries, logger)

	clearWorker := worker.NewCartClearWorker(cartClient, cfg.ClearRetryInterval, cfg.ClearRetryAttempts, logger)

	svc := app.NewOrderService(store, cartClient, stockClient, clock.NewSystem(), logger,
		app.WithCartClearQueue(clearWorker),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler("order-service"))
	mux.HandleFunc("/metrics", transporthttp.MetricsHandler())
	mux.Handle("/orders", transporthttp.HandleCreateOrder(svc))
	mux.Handle("/orders/", transporthttp.HandleOrderByID(svc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestID(
		transporthttp.RequestLogger(
			transporthttp.CORS(cfg.CORSOrigins, mux),
			logger,
		),
	)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	logger.Info("orderd listening", zap.String("addr", cfg.HTTPAddr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go clearWorker.Run(stopCtx)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
