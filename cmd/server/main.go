package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/v18mgazy/Ghazyy-sub002/internal/cache"
	"github.com/v18mgazy/Ghazyy-sub002/internal/config"
	"github.com/v18mgazy/Ghazyy-sub002/internal/httpapi"
	"github.com/v18mgazy/Ghazyy-sub002/internal/logging"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
	"github.com/v18mgazy/Ghazyy-sub002/internal/service"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store/memory"
	pgstore "github.com/v18mgazy/Ghazyy-sub002/internal/store/postgres"
)

var cfgPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Run the POS reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "optional config file (yaml, json or toml)")
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to DATABASE_URL",
		RunE:  runMigrate,
	})
	return root
}

func loadConfig() (config.Config, zerolog.Logger, error) {
	// .env is optional; real deployments pass the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set to run migrations")
	}
	version, err := pgstore.MigrateUp(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	logger.Info().Uint("version", version).Msg("migrations applied")
	return nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	location, _ := cfg.Location()

	ctx := logger.WithContext(cmd.Context())
	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info().Msg("repository: in-memory")
	}

	catalogCache := cache.CatalogCache(cache.NoopCatalogCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCatalogCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(startupCtx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, catalog cache disabled")
		} else {
			catalogCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("cache: redis")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	source := cache.NewCatalogSource(repo, catalogCache, cfg.CatalogCacheTTL())
	generator := report.NewGenerator(source,
		report.WithMetrics(report.NewMetrics(registry)),
		report.WithLocation(location),
		report.WithLocale(cfg.ReportLocale),
	)
	svc := service.New(repo, generator, source, location)
	auth := httpapi.NewAuthManager(startupCtx, cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, logger, cfg.AllowedOrigin, registry)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      65 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Address()).Str("timezone", location.String()).Msg("POS reporting API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be set and at least 32 characters")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE %q: %w", cfg.ReportTimezone, err)
	}
	return nil
}
