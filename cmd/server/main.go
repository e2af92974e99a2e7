// Package main initializes and starts the diary server: the PostgreSQL
// snapshot store and the proxy to users' own MySQL databases.
package main

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/FoodDiary/internal/config"
	"github.com/atinyakov/FoodDiary/internal/db"
	"github.com/atinyakov/FoodDiary/internal/logger"
	"github.com/atinyakov/FoodDiary/internal/repository"
	"github.com/atinyakov/FoodDiary/internal/server/handler/http"
	"github.com/atinyakov/FoodDiary/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if options.DatabaseDSN == "" {
		zapLogger.Fatal("database DSN is required (-d or DATABASE_DSN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and apply migrations.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Mirror pools are opened on demand per connection config.
	pools := db.NewMySQLPools(nil)
	defer pools.Close()
	db.StartPoolJanitor(ctx, pools,
		time.Minute,                    // interval
		options.MirrorIdleTTL.Duration, // idle ttl
		zapLogger,
	)

	// Initialize business-logic services.
	snapshotService := service.NewSnapshotService(repository.NewPostgresSnapshotRepository(postgresDB))
	mirrorService := service.NewMirrorService(pools, func(conn *sql.DB) service.MirrorRepository {
		return repository.NewMySQLEntryRepository(conn)
	})

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.SnapshotHandler{Service: snapshotService},
		&http.MirrorHandler{Service: mirrorService},
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting HTTP server", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("server shutdown", zap.Error(err))
	}
}
