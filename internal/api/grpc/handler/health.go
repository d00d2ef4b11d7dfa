package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/valhalla-auth/internal/logger"
)

// ServiceName is the health service name reported for the auth backend.
const ServiceName = "valhalla.auth"

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health publishes the serving status of the backend through the standard
// gRPC health service.
type Health struct {
	server *health.Server
	db     Pinger
	logger *logger.Logger
}

// NewHealth creates a Health handler that reports NOT_SERVING until the
// first successful check.
func NewHealth(db Pinger, logger *logger.Logger) *Health {
	s := health.NewServer()
	s.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Health{server: s, db: db, logger: logger}
}

// Server returns the gRPC health service implementation.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Check pings the database once and updates the serving status.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("gRPC health: database ping failed", "error", err.Error())
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus("", st)
	h.server.SetServingStatus(ServiceName, st)
	return st
}

// Watch runs Check every interval until ctx is done, then marks the
// backend as shutting down.
func (h *Health) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
