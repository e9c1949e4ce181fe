package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clauselens/core/internal/app"
	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/pkg/cluster"
	"github.com/clauselens/core/internal/pkg/nativelog"
	"github.com/clauselens/core/internal/pkg/proctitle"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	logger, err := nativelog.NewZapLogger()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	opts := cluster.Options{
		Enable:     cfg.Cluster,
		Workers:    cfg.ClusterWorkers,
		ListenAddr: fmt.Sprintf(":%d", cfg.Port),
	}
	if err := cluster.Run(logger, opts, func() error {
		return serve(logger, cfg)
	}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func serve(logger *zap.Logger, cfg *config.AppConfig) error {
	if cluster.IsWorker() {
		_ = proctitle.Set(fmt.Sprintf("clauselens-core: worker %d", cluster.WorkerID()))
	} else {
		_ = proctitle.Set("clauselens-core")
	}

	application, err := app.New(logger, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	srv := &http.Server{
		Addr:    application.Addr(),
		Handler: application.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		addr := srv.Addr
		if workerAddr := cluster.WorkerListenAddr(); workerAddr != "" {
			addr = workerAddr
			srv.Addr = workerAddr
		}

		if cluster.ShouldLogBootstrap() {
			logger.Info("server starting", zap.String("addr", addr))
			logger.Info("dashboard", zap.String("url", "http://localhost"+addr+application.DashboardProxyPath()))
			logger.Info("dashboard dev proxy", zap.String("url", "http://localhost"+addr+application.DashboardProxyDevPath()))
		}

		listener, err := cluster.ListenTCP(addr, cfg.Cluster)
		if err != nil {
			errCh <- err
			return
		}
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")
	application.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
