package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfman30/clinic-booking/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking/internal/config"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

func main() {
	// Load configuration
	cfg, err := mainconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"clinic_api", cfg.ClinicAPIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The in-process demo backend must be listening before the directory loads.
	var demoSrv *http.Server
	if cfg.DemoBackend {
		demoSrv, _, err = startDemo(cfg, logger.With("component", "demo-backend"))
		if err != nil {
			logger.Error("failed to start demo backend", "error", err)
			os.Exit(1)
		}
	}

	app := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
	background := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(background)
	}()

	srv := newServer(cfg, app.Handler)
	go serve(srv, logger)

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if demoSrv != nil {
		_ = demoSrv.Shutdown(shutdownCtx)
	}
	<-background

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newServer builds the HTTP server. WriteTimeout stays zero so session event
// websockets are not cut off; handlers bound their own remote calls.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// startDemo binds the demo backend listener before returning, so requests made
// after it returns cannot race the bind.
func startDemo(cfg *appconfig.Config, logger *logging.Logger) (*http.Server, net.Addr, error) {
	srv := bootstrap.DemoServer(cfg.DemoBackendAddr, logger)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("demo backend: listen %s: %w", srv.Addr, err)
	}
	logger.Info("demo backend listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "addr", srv.Addr, "error", err)
			os.Exit(1)
		}
	}()
	return srv, ln.Addr(), nil
}

func serve(srv *http.Server, logger *logging.Logger) {
	logger.Info("server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "addr", srv.Addr, "error", err)
		os.Exit(1)
	}
}
