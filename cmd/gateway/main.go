package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/cleanshop/gateway"
	"github.com/example/cleanshop/pkg/catalog"
	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/discovery"
	storegrpc "github.com/example/cleanshop/pkg/grpc"
	"github.com/example/cleanshop/pkg/logging"
	"github.com/example/cleanshop/pkg/notify"
	"github.com/example/cleanshop/pkg/order"
	"github.com/example/cleanshop/pkg/repository"
	"github.com/example/cleanshop/pkg/session"
	"go.uber.org/zap"
)

const (
	healthInterval = 15 * time.Second
	sweepInterval  = time.Minute
	shutdownGrace  = 10 * time.Second
)

func main() {
	configPath := os.Getenv("STOREFRONT_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Storefront failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// run wires every component and blocks until a shutdown signal or a server
// error. Every resource opened here is released before it returns.
func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting storefront",
		zap.String("record_store", cfg.RecordStore.Driver),
		zap.Int("port", cfg.Gateway.Port),
		zap.String("host", cfg.Gateway.Host))

	health := storegrpc.NewHealthServer(&cfg.Server, logger.Named("health"))

	// Record store
	var store repository.RecordStore
	if cfg.RecordStore.Driver == "memory" {
		store = repository.NewMemoryRecordStore()
		logger.Warn("Using in-memory record store, orders will not survive a restart")
	} else {
		gormStore, err := repository.OpenGormRecordStore(&cfg.RecordStore)
		if err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}
		defer gormStore.Close()
		if cfg.RecordStore.AutoMigrate {
			if err := gormStore.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate record store: %w", err)
			}
		}
		health.AddCheck("record_store", gormStore.Ping)
		store = gormStore
	}

	if cfg.RecordStore.SeedFile != "" {
		seeds, err := catalog.LoadSeed(cfg.RecordStore.SeedFile)
		if err != nil {
			return err
		}
		n, err := catalog.Seed(ctx, store, seeds)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("Products seeded", zap.Int("count", n), zap.String("file", cfg.RecordStore.SeedFile))
		}
	}

	// Redis backs sessions and the product cache when reachable
	var (
		cache     catalog.Cache
		snapshots session.SnapshotRepository
	)
	if cfg.Redis.Addr != "" {
		redisRepo := repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()
		if err := redisRepo.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, sessions stay in memory", zap.Error(err))
		} else {
			cache = redisRepo
			snapshots = redisRepo
		}
		health.AddCheck("redis", redisRepo.Ping)
	}

	// MongoDB audit log
	var (
		auditor       notify.Auditor
		history       gateway.OrderHistory
		statusAuditor order.Auditor
	)
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB, cfg.Server.Name)
		if err != nil {
			logger.Warn("MongoDB unavailable, audit log disabled", zap.Error(err))
		} else {
			defer func() {
				cctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				mongoRepo.Close(cctx)
			}()
			auditor, history, statusAuditor = mongoRepo, mongoRepo, mongoRepo
			health.AddCheck("mongodb", mongoRepo.Ping)
		}
	}

	// RabbitMQ order events
	var publisher notify.Publisher
	if cfg.RabbitMQ.URL != "" {
		amqpPub, err := notify.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, order events disabled", zap.Error(err))
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
		}
	}

	dispatcher, err := notify.NewDispatcher(notify.LogOpener{Logger: logger.Named("handoff")}, publisher, auditor, logger)
	if err != nil {
		return fmt.Errorf("failed to start handoff dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Stop(); err != nil {
			logger.Warn("Handoff dispatcher stop", zap.Error(err))
		}
	}()

	sessions := session.NewManager(snapshots, cfg.Session.TTL, logger.Named("sessions"))
	go sweepSessions(ctx, sessions, logger)

	gw := gateway.NewGateway(cfg, logger, gateway.Services{
		Catalog:  catalog.NewService(store, cache, logger.Named("catalog")),
		Sessions: sessions,
		Workflow: order.NewWorkflow(store, dispatcher, &cfg.Handoff, logger.Named("checkout")),
		Orders:   order.NewOrders(store, statusAuditor, logger.Named("orders")),
		History:  history,
	})
	gw.SetupRoutes()

	// Service discovery
	instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port}
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			defer func() {
				dctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				if err := sd.Deregister(dctx, instance); err != nil {
					logger.Warn("Failed to deregister service", zap.Error(err))
				}
				sd.Close()
			}()
			if err := sd.Register(ctx, instance); err != nil {
				logger.Warn("Failed to register service", zap.Error(err))
			}
		}
	}

	go health.Watch(ctx, healthInterval)

	errCh := make(chan error, 2)
	go func() {
		if err := health.Start(); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()

	logger.Info("Storefront started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Gateway shutdown", zap.Error(err))
	}
	health.Stop()

	logger.Info("Storefront stopped")
	return runErr
}

func sweepSessions(ctx context.Context, sessions *session.Manager, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				logger.Debug("Idle sessions dropped", zap.Int("count", n))
			}
		}
	}
}
