package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-catalog/internal/logging"
	"github.com/tendant/simple-catalog/pkg/catalog/api"
	"github.com/tendant/simple-catalog/pkg/catalog/config"
)

const (
	requestTimeout  = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "", "optional YAML/TOML/JSON config file; environment variables override it")
	envHelp := flag.Bool("env-help", false, "print the supported environment variables and exit")
	flag.Parse()

	if *envHelp {
		fmt.Println(config.EnvUsage())
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	opts := []config.Option{}
	if *configFile != "" {
		opts = append(opts, config.WithFile(*configFile))
	}
	opts = append(opts, config.WithEnv())

	cfg, err := config.Load(opts...)
	if err != nil {
		slog.Error("failed to load server configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	services, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer services.Close()

	handler, err := newHandler(cfg, services)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	dbType, _ := cfg.DatabaseType()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("simple-catalog server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", dbType,
			"storage", cfg.StorageURL,
			"require_auth", cfg.RequireAuth,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}

func newHandler(cfg *config.ServerConfig, services *config.Services) (http.Handler, error) {
	urls, err := cfg.URLStrategy()
	if err != nil {
		return nil, err
	}

	requestLogger := httplog.NewLogger("simple-catalog", httplog.Options{
		JSON:            cfg.Environment != config.EnvDevelopment,
		LogLevel:        logging.ParseLevel(cfg.LogLevel),
		Concise:         true,
		QuietDownRoutes: []string{"/health"},
		QuietDownPeriod: 10 * time.Second,
	})

	return api.NewRouter(api.RouterConfig{
		Catalog:        services.Catalog,
		Auth:           services.Auth,
		RequireAuth:    cfg.RequireAuth,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    cfg.CORSOrigins,
		Timeout:        requestTimeout,
		URLs:           urls,
		Middlewares:    []func(http.Handler) http.Handler{httplog.RequestLogger(requestLogger)},
	}), nil
}
