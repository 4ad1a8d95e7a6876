package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/algomatic/strategy-manager/internal/api"
	"github.com/algomatic/strategy-manager/internal/config"
	"github.com/algomatic/strategy-manager/internal/db"
	"github.com/algomatic/strategy-manager/internal/directory"
	"github.com/algomatic/strategy-manager/internal/manifest"
	"github.com/algomatic/strategy-manager/internal/redisbus"
	"github.com/algomatic/strategy-manager/internal/repository"
	"github.com/algomatic/strategy-manager/internal/server"
	"github.com/algomatic/strategy-manager/internal/service"
	"github.com/algomatic/strategy-manager/internal/tracing"
	"github.com/algomatic/strategy-manager/pkg/manager"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC admin service and the HTTP API",
		Long: `Run the strategy manager. Configuration comes from SM_* environment
variables. When SM_MANIFEST is set, its collaborators are deployed and its
registrations applied before the servers start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log.Level)
	logger.Info("Starting strategy-manager",
		"version", version,
		"grpc_port", cfg.GRPC.Port,
		"http_port", cfg.HTTP.Port,
		"postgres", cfg.Database.Enabled(),
		"redis", cfg.Redis.Enabled(),
		"tracing", cfg.Tracing.Enabled,
	)

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("creating tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	opts := []service.Option{service.WithTracer(tp.Tracer())}
	checks := map[string]api.HealthCheck{}
	var history api.ExecutionHistory

	if cfg.Database.Enabled() {
		pool, err := db.NewPool(ctx, cfg.Database.ConnString(), cfg.Database.MaxConns, cfg.Database.MinConns, logger)
		if err != nil {
			return fmt.Errorf("failed to create database pool: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		eventRepo := repository.NewEventRepo(pool, logger)
		opts = append(opts,
			service.WithExecutionSink(eventRepo),
			service.WithGroupSink(repository.NewGroupRepo(pool, logger)),
		)
		history = eventRepo
		checks["postgres"] = pool.Ping
	}

	if cfg.Redis.Enabled() {
		bus := redisbus.NewBus(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ChannelPrefix, logger)
		defer bus.Close()
		if err := bus.HealthCheck(ctx); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		opts = append(opts, service.WithExecutionSink(bus), service.WithGroupSink(bus))
		checks["redis"] = bus.HealthCheck
	}

	dir := directory.New()
	svc := service.New(manager.New(logger), dir, logger, opts...)

	if cfg.Manifest != "" {
		if err := bootstrap(ctx, cfg.Manifest, dir, svc, logger); err != nil {
			return err
		}
	}

	grpcServer, healthServer := server.NewGRPCServer(server.New(svc, logger), logger)
	grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", grpcAddr, err)
	}

	apiServer := api.NewServer(svc, version, logger)
	apiServer.History = history
	apiServer.Checks = checks
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("HTTP API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Received signal, shutting down")
	case serveErr = <-errCh:
		logger.Error("Server failed", "error", serveErr)
	}

	healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()

	logger.Info("Strategy manager stopped")
	return serveErr
}

func bootstrap(ctx context.Context, path string, dir *directory.Directory, svc *service.Service, logger *slog.Logger) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	if err := manifest.Deploy(m, dir, logger); err != nil {
		return fmt.Errorf("deploying manifest: %w", err)
	}
	if err := manifest.Apply(ctx, m, svc); err != nil {
		return fmt.Errorf("applying manifest: %w", err)
	}
	logger.Info("Manifest applied", "path", path, "groups", len(m.Groups))
	return nil
}
