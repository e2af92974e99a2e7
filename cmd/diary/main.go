// Package main runs the local food diary: it loads the diary, keeps it in
// sync with the configured remote stores and serves the JSON API used by
// the browser UI.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/FoodDiary/internal/client/config"
	handler "github.com/atinyakov/FoodDiary/internal/client/handler/http"
	"github.com/atinyakov/FoodDiary/internal/client/remote"
	"github.com/atinyakov/FoodDiary/internal/client/storage"
	"github.com/atinyakov/FoodDiary/internal/logger"
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
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	flag.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "food-diary: %v\n", err)
		return 1
	}

	log := logger.New()
	if err := log.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "food-diary: %v\n", err)
		return 1
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slots, closeSlots, err := openSlots(ctx, cfg)
	if err != nil {
		zapLogger.Error("cannot open local storage", zap.Error(err))
		return 1
	}
	defer closeSlots()

	var snapshots service.Snapshots
	if cfg.SnapshotEnabled() {
		c, err := remote.NewSnapshotClient(cfg.SnapshotURL, nil)
		if err != nil {
			zapLogger.Error("invalid snapshot_url", zap.Error(err))
			return 1
		}
		snapshots = c
	}

	var mirror service.Mirror
	if cfg.MirrorEnabled() {
		c, err := remote.NewMirrorClient(cfg.MirrorURL, nil)
		if err != nil {
			zapLogger.Error("invalid mirror_url", zap.Error(err))
			return 1
		}
		mirror = c
	}

	svc := service.NewDiaryService(storage.NewLocalStore(slots, zapLogger), snapshots, mirror, zapLogger, service.Options{
		PushDelay:     cfg.PushDelay,
		MirrorTimeout: cfg.MirrorTimeout,
	})
	svc.Init(ctx)

	server := &nethttp.Server{
		Addr:              cfg.Listen,
		Handler:           handler.NewRouter(&handler.DiaryHandler{Service: svc}, zapLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting diary API", zap.String("addr", cfg.Listen), zap.String("storage", cfg.Storage))
		errCh <- server.ListenAndServe()
	}()

	code := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("diary API stopped", zap.Error(err))
			code = 1
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("server shutdown", zap.Error(err))
	}
	if err := svc.Close(shutdownCtx); err != nil {
		zapLogger.Warn("pending sync did not finish", zap.Error(err))
	}
	return code
}

func openSlots(ctx context.Context, cfg config.Config) (storage.Slots, func(), error) {
	if cfg.Storage == config.StorageSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := storage.OpenSQLiteSlots(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	s, err := storage.NewFileSlots(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}
