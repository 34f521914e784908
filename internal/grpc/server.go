// Package grpc exposes the standard gRPC health service so the helpdesk can
// be probed the same way as the other PSDS services.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "helpdesk.HelpdeskService"

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Deps зависимости gRPC-сервера.
type Deps struct {
	Checks   map[string]Check
	Interval time.Duration
	Logger   *slog.Logger
}

type Server struct {
	srv    *grpc.Server
	health *health.Server
	Deps
}

func NewServer(deps Deps) *Server {
	if deps.Interval <= 0 {
		deps.Interval = 15 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "grpc")
	s := &Server{srv: grpc.NewServer(), health: health.NewServer(), Deps: deps}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

// Probe runs the checks once and publishes the result.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.Checks {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			s.Logger.Warn("health check failed", "check", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve probes periodically and serves on lis until Stop.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Probe(ctx)
	go func() {
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Probe(ctx)
			}
		}
	}()
	return s.srv.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
