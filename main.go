package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/deeptrust/internal/config"
	"github.com/example/deeptrust/internal/handlers"
	"github.com/example/deeptrust/internal/logging"
	"github.com/example/deeptrust/internal/metrics"
	"github.com/example/deeptrust/internal/relay"
	"github.com/example/deeptrust/internal/usecase"
)

func main() {
	cfg, err := config.Load(os.Getenv("DEEPTRUST_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("metrics registration failed", zap.Error(err))
	}

	rl, err := relay.New(relay.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build relay", zap.Error(err))
	}
	if cfg.Provider.APIKey == "" {
		logger.Warn("provider api key is empty; requests are sent without credentials")
	}

	uc := usecase.NewAnalysisUseCase(rl, logger)

	r := handlers.NewRouter(logger, cfg.Log.Level == "debug")
	handlers.RegisterRoutes(r, uc, handlers.Options{MaxUploadSize: cfg.Server.MaxUploadSize})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("relay listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("model", cfg.Provider.Model),
		zap.String("provider", cfg.Provider.BaseURL),
	)
	shutdownTimeout := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
	if err := serveHTTPServer(server, shutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

// serveHTTPServerWithOptions serves until the server fails or a signal
// arrives, then drains in-flight requests for up to shutdownTimeout. A nil
// listener means ListenAndServe; a nil signalCh means SIGINT/SIGTERM.
func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
