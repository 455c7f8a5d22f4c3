// Package main provides the battle server binary that keeps live battles in
// memory and serves them over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/idlequest/internal/battleserver"
	"github.com/cory-johannsen/idlequest/internal/config"
	"github.com/cory-johannsen/idlequest/internal/content"
	"github.com/cory-johannsen/idlequest/internal/game/session"
	"github.com/cory-johannsen/idlequest/internal/observability"
	"github.com/cory-johannsen/idlequest/internal/server"
	"github.com/cory-johannsen/idlequest/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("db-health", 30*time.Second, "database health check interval")
	statsInterval := flag.Duration("stats", time.Minute, "live battle count log interval")
	grace := flag.Duration("grace", server.DefaultGrace, "shutdown grace period")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "battleserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting battle server",
		zap.String("grpc_addr", cfg.BattleServer.Addr()),
		zap.Bool("record_battles", cfg.BattleServer.RecordBattles),
	)

	bundle, err := content.Load(cfg.Content, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	defer bundle.Close()

	lifecycle := server.NewLifecycle(logger, *grace)

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	var recorder session.Recorder
	if cfg.BattleServer.RecordBattles {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		if err := pool.RequireSchema(ctx); err != nil {
			logger.Fatal("checking database schema", zap.Error(err), zap.String("hint", "run cmd/migrate"))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
		)
		recorder = postgres.NewBattleRepository(pool.DB())

		lifecycle.Add("postgres", &server.TickService{
			Interval: *healthInterval,
			Tick: func(ctx context.Context) {
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
					healthSrv.SetServingStatus(battleserver.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
					return
				}
				healthSrv.SetServingStatus(battleserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
			},
			Cleanup: pool.Close,
		})
	}

	sessions := bundle.Sessions(cfg.Battle, logger, recorder)
	battleserver.RegisterBattleServiceServer(grpcServer, battleserver.NewServer(sessions, logger))
	healthSrv.SetServingStatus(battleserver.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lifecycle.Add("sessions", &server.TickService{
		Interval: *statsInterval,
		Tick: func(context.Context) {
			logger.Info("live battles", zap.Int("active", sessions.Active()))
		},
		Cleanup: func() {
			healthSrv.Shutdown()
			logger.Info("battles dropped at shutdown", zap.Int("active", sessions.Active()))
		},
	})
	lifecycle.Add("grpc", server.NewGRPCService(grpcServer, cfg.BattleServer.Addr(), logger))

	logger.Info("battle server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
