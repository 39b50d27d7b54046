// Command stockd serves the stock reservation ledger.
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
	"github.com/minutmaidman/shopcore/internal/config"
	"github.com/minutmaidman/shopcore/internal/storage/memory"
	"github.com/minutmaidman/shopcore/internal/storage/postgres"
	transporthttp "github.com/minutmaidman/shopcore/internal/transport/http"
	"github.com/minutmaidman/shopcore/migrations"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.LoadEnvFile(logger)
	cfg := config.LoadStockd()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store app.StockStore
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

		repo := postgres.NewStockRepository(pool)
		if err := repo.Seed(startupCtx, cfg.Seed); err != nil {
			logger.Fatal("seed stock", zap.Error(err))
		}
		store = repo
		logger.Info("using postgres stock store")
	} else {
		mem := memory.NewStockStore()
		mem.Seed(cfg.Seed)
		store = mem
		logger.Info("using in-memory stock store", zap.Int("seeded_products", len(cfg.Seed)))
	}

	svc := app.NewStockService(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler("stock-service"))
	mux.HandleFunc("/metrics", transporthttp.MetricsHandler())
	mux.Handle("/stock/", transporthttp.HandleStock(svc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestID(
		transporthttp.RequestLogger(
			transporthttp.CORS(cfg.CORSOrigins, mux),
			logger,
		),
	)

	runServer(logger, cfg.HTTPAddr, cfg.ShutdownTimeout, handler)
}

func runServer(logger *zap.Logger, addr string, shutdownTimeout time.Duration, handler http.Handler) {
	server := &http.Server{Addr: addr, Handler: handler}

	logger.Info("stockd listening", zap.String("addr", addr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
