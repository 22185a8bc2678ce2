package grpc

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/jmaisinchop/app-renattos/pkg/auth"
)

// MethodRoles lists which operator roles may call each guarded method.
// Reads are open to any authenticated operator.
var MethodRoles = map[string][]string{
	FullMethod("RegisterSale"):     {auth.RoleCashier, auth.RoleAdmin},
	FullMethod("PostPayment"):      {auth.RoleCashier, auth.RoleCollector, auth.RoleAdmin},
	FullMethod("ReprintReceipt"):   {auth.RoleCashier, auth.RoleCollector, auth.RoleAdmin},
	FullMethod("SaveRateFactor"):   {auth.RoleAdmin},
	FullMethod("DeleteRateFactor"): {auth.RoleAdmin},
}

// ServerOptions configures optional server behavior.
type ServerOptions struct {
	// Creds enables TLS when set.
	Creds      credentials.TransportCredentials
	Reflection bool
}

// Server wraps a gRPC server with the credit handler registered.
type Server struct {
	gs     *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates and configures the gRPC server.
func NewServer(handler CreditServiceServer, validator auth.TokenValidator, logger *slog.Logger, opts ServerOptions) *Server {
	authInterceptor := auth.UnaryAuthInterceptor(validator, []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	})

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(authInterceptor, auth.RequireMethodRoles(MethodRoles)),
	}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(opts.Creds))
		logger.Info("gRPC TLS enabled")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpc.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterCreditServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}
}

// Serve starts the gRPC server on the specified address.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an already bound listener.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// GracefulStop marks the service as not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}
