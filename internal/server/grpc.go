// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/AccelByte/extend-account-sync/pkg/common"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ReadinessFunc reports whether the agent can currently serve its session.
type ReadinessFunc func(ctx context.Context) bool

// GRPCServer manages the gRPC server lifecycle. It exposes the standard health service, whose
// overall status follows a ReadinessFunc, plus reflection.
type GRPCServer struct {
	server    *grpc.Server
	health    *health.Server
	port      int
	ready     ReadinessFunc
	interval  time.Duration
	stopWatch context.CancelFunc
}

// NewGRPCServer creates a new gRPC server instance. ready is polled every interval.
func NewGRPCServer(port int, ready ReadinessFunc, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &GRPCServer{
		port:     port,
		ready:    ready,
		interval: interval,
	}
}

// Setup configures the gRPC server with interceptors and registers handlers.
//
// ============================================================
// DEVELOPER: gRPC server configuration
// ============================================================
// This method sets up:
// 1. Interceptors (logging, tracing)
// 2. Server features (reflection, health checks)
//
// The agent has no RPC surface of its own. Kubernetes probes use
// the health service, which reports SERVING only while a session
// is loaded, sync is not halted and the local cache is reachable.
// ============================================================
func (s *GRPCServer) Setup() error {
	unaryInterceptors := []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}
	streamInterceptors := []grpc.StreamServerInterceptor{
		logging.StreamServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}

	// Create server with OpenTelemetry instrumentation
	s.server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	s.health = health.NewServer()
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	reflection.Register(s.server)
	grpc_health_v1.RegisterHealthServer(s.server, s.health)

	logrus.Infof("gRPC reflection and health check enabled")

	return nil
}

// Start begins listening and serving gRPC requests.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	go func() {
		logrus.Infof("gRPC server listening on port %d", s.port)
		if err := s.server.Serve(lis); err != nil {
			logrus.Fatalf("gRPC server failed: %v", err)
		}
	}()

	watchCtx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel
	go s.watchHealth(watchCtx)

	return nil
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	serving := false
	for {
		ready := s.ready != nil && s.ready(ctx)
		if ready != serving {
			serving = ready
			status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
			if ready {
				status = grpc_health_v1.HealthCheckResponse_SERVING
			}
			s.health.SetServingStatus("", status)
			logrus.Infof("health status changed to %s", status)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown gracefully stops the gRPC server.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down gRPC server...")
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.health.Shutdown()
	s.server.GracefulStop()
	logrus.Info("gRPC server stopped")
	return nil
}
