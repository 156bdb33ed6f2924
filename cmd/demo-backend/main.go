package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfman30/clinic-booking/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking/internal/demo"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

func main() {
	cfg, err := mainconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	var opts []demo.Option
	if cfg.ClinicAPIKey != "" {
		opts = append(opts, demo.WithAPIKey(cfg.ClinicAPIKey))
	}
	srv := bootstrap.DemoServer(cfg.DemoBackendAddr, logger, opts...)

	go func() {
		logger.Info("demo clinic API listening", "addr", srv.Addr, "base_path", "/api/v1")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("demo server forced to shutdown", "error", err)
	}
	logger.Info("demo server stopped")
}
