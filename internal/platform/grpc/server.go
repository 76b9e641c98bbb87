// Package grpc runs the gRPC endpoint that exposes health and reflection.
package grpc

import (
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Server struct {
	log    *slog.Logger
	gs     *grpc.Server
	health *health.Server
}

// NewServer builds a traced server with health and reflection registered.
func NewServer(log *slog.Logger, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return &Server{log: log, gs: gs, health: hs}
}

// SetServing reports service (or the whole server for "") as serving or not.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Serve blocks until the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.SetServing("", true)
	s.log.Info("grpc listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// Run listens on addr and serves in the background.
func Run(addr string, s *Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.Serve(lis); err != nil {
			s.log.Error("grpc server stopped", "err", err)
		}
	}()
	return nil
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.gs.GracefulStop()
}
