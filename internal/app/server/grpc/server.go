// Package grpc exposes the standard gRPC health service, backed by the
// database connection of the analyzer.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/atinyakov/go-page-analyzer/internal/intercepters"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "page-analyzer"

// Pinger reports whether the storage is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server wraps the gRPC server and dependencies.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	pinger     Pinger
	port       int
	logger     *zap.Logger
}

// New creates a new gRPC server instance. A non-empty trustedSubnet
// restricts every call to clients inside it.
func New(logger *zap.Logger, pinger Pinger, port int, trustedSubnet string) *Server {
	interceptors := []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(intercepters.InterceptorLogger(logger)),
		intercepters.SubnetIPInterceptor,
	}
	if trustedSubnet != "" {
		interceptors = append(interceptors, intercepters.WithTrustedSubnet(trustedSubnet))
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	return &Server{
		grpcServer: s,
		health:     hs,
		pinger:     pinger,
		port:       port,
		logger:     logger,
	}
}

// Start runs the gRPC server.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Error("gRPC server failed to listen:", zap.Error(err))
		return err
	}

	s.logger.Info("gRPC server listening on port", zap.Int("port", s.port))
	return s.Serve(lis)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Refresh pings the storage and publishes the result.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.pinger.PingContext(ctx); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// Watch refreshes the health status every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		s.Refresh(pingCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// GracefulStop marks the services as not serving and shuts the server down.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
