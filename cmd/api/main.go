package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/auth"
	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/config"
	"github.com/cimillas/ticket-booking/internal/logger"
	"github.com/cimillas/ticket-booking/internal/metrics"
	"github.com/cimillas/ticket-booking/internal/storage/postgres"
	"github.com/cimillas/ticket-booking/internal/storage/sqlite"
	transporthttp "github.com/cimillas/ticket-booking/internal/transport/http"
	"github.com/cimillas/ticket-booking/migrations"
)

const startupTimeout = 10 * time.Second

type flags struct {
	role        string
	envFile     string
	migrateOnly bool
}

func main() {
	var f flags
	pflag.StringVar(&f.role, "role", string(config.RoleAll), "routes to serve: admin, client or all")
	pflag.StringVar(&f.envFile, "env-file", "", "path to a .env file (default: search working directory and parents)")
	pflag.BoolVar(&f.migrateOnly, "migrate-only", false, "apply migrations and exit")
	pflag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	bootLogger, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	config.LoadEnvFile(bootLogger, f.envFile)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	role, err := config.ParseRole(f.role)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("role", string(role)))

	if !f.migrateOnly {
		if err := cfg.Validate(role); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	st, err := openStore(startupCtx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if f.migrateOnly {
		log.Info("migrations applied", zap.String("driver", cfg.StoreDriver))
		return nil
	}

	reg := metrics.New()
	clk := clock.NewSystem()
	adminSvc := app.NewAdminService(st.events, clk, app.WithCreateObserver(reg))
	inventorySvc := app.NewInventoryService(st.inventory, clk, app.WithPurchaseObserver(reg))

	routerCfg := transporthttp.RouterConfig{
		ServeAdmin:     role.ServesAdmin(),
		ServeClient:    role.ServesClient(),
		Events:         adminSvc,
		Inventory:      inventorySvc,
		AdminAPIKey:    cfg.AdminAPIKey,
		Health:         st.health,
		Metrics:        reg,
		MetricsHandler: reg.Handler(),
		Logger:         log,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}
	if role.ServesClient() {
		routerCfg.Verifier = auth.NewVerifier(cfg.JWTSecret)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           transporthttp.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("api listening", zap.String("addr", server.Addr), zap.String("driver", cfg.StoreDriver))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

type store struct {
	events    app.EventRepository
	inventory app.InventoryRepository
	health    transporthttp.HealthChecker
	close     func()
}

// openStore connects to the configured backend and brings its schema up
// to date.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return &store{
			events:    postgres.NewEventRepository(pool),
			inventory: postgres.NewInventoryRepository(pool),
			health:    pool,
			close:     pool.Close,
		}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		pool, err := sqlite.Open(sqlite.Config{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.SQLitePoolSize,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		if err := migrations.ApplySQLite(ctx, pool); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return &store{
			events:    sqlite.NewEventRepository(pool),
			inventory: sqlite.NewInventoryRepository(pool),
			health:    pool,
			close:     func() { _ = pool.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
