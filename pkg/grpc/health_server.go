package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/example/cleanshop/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const checkTimeout = 3 * time.Second

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// HealthServer exposes the standard gRPC health service. Each registered
// check is reported under its own service name; the empty name is SERVING
// only while every check passes.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
	logger *zap.Logger

	mu     sync.Mutex
	checks map[string]Check
}

func NewHealthServer(cfg *config.ServerConfig, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		srv:    srv,
		health: hs,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		logger: logger,
		checks: make(map[string]Check),
	}
}

func (h *HealthServer) AddCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
	h.health.SetServingStatus(name, healthpb.HealthCheckResponse_UNKNOWN)
}

// Refresh runs every check and publishes the results. It returns the names
// of the failing checks.
func (h *HealthServer) Refresh(ctx context.Context) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var failing []string
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			failing = append(failing, name)
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
		}
		h.health.SetServingStatus(name, status)
	}
	sort.Strings(failing)

	overall := healthpb.HealthCheckResponse_SERVING
	if len(failing) > 0 {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", overall)
	return failing
}

// Watch refreshes the checks every interval until ctx is done.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

func (h *HealthServer) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	h.logger.Info("Health service started", zap.String("address", h.addr))
	return h.srv.Serve(lis)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}
