// Command gateway serves the routing layer in front of the services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/config"
	"github.com/minutmaidman/shopcore/internal/gateway"
	transporthttp "github.com/minutmaidman/shopcore/internal/transport/http"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.LoadEnvFile(logger)
	cfg := config.LoadGateway()

	router := gateway.NewRouter(cfg.Backends, cfg.ForwardTimeout, cfg.ProbeTimeout, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler("gateway"))
	mux.HandleFunc("/metrics", transporthttp.MetricsHandler())
	mux.Handle("/api/v1/", router)
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestID(
		transporthttp.RequestLogger(
			transporthttp.CORS([]string{"*"}, mux),
			logger,
		),
	)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	logger.Info("gateway listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.Int("services", len(cfg.Backends)),
	)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
