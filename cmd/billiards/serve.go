package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/api"
	"github.com/playmatatu/billiards/internal/database"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/logging"
	"github.com/playmatatu/billiards/internal/migrations"
	"github.com/playmatatu/billiards/internal/redis"
	"github.com/playmatatu/billiards/internal/store"
	"github.com/playmatatu/billiards/internal/ws"
	"github.com/spf13/cobra"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Start the API server. Sessions run in this process; with REDIS_URL set,
snapshots, idle deadlines and close requests are shared between instances.

Examples:
  billiards serve
  billiards serve --port 9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "Listen port (default: APP_PORT)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	logger := logging.For("server")
	if flagPort != "" {
		cfg.Port = flagPort
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	logger.Info("tables loaded", "source", catalog.Source())

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	switch {
	case cfg.DatabaseDriver == database.DriverSQLite:
		if err := st.EnsureSchema(context.Background()); err != nil {
			return err
		}
	case cfg.MigrateOnStart:
		logger.Info("running migrations on startup")
		if err := migrations.Run(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	game.InitializeManager(ctx, catalog, st, rdb, cfg)
	game.Manager.SetListener(ws.HandleGameEvent)

	ws.SetRedisClient(rdb)
	ws.StartSessionEventSubscriber(ctx)
	game.StartIdleWorker(ctx, rdb, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, st, catalog, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting billiards server", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	game.Manager.Shutdown(shutdownCtx)
	return nil
}
