package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/valhalla-auth/internal/api/grpc/handler"
	"github.com/dtroode/valhalla-auth/internal/api/grpc/middleware"
	"github.com/dtroode/valhalla-auth/internal/logger"
)

// Router represents the gRPC router of the auth backend.
type Router struct {
	authorizer middleware.Authorizer
	health     *handler.Health
	logger     *logger.Logger
}

// New creates new gRPC Router instance.
//
// Parameters:
//   - authorizer: The request guard used by the authentication interceptor
//   - health: The health status publisher
//   - logger: The logger for request logging
//
// Returns a pointer to the newly created Router instance.
func New(
	authorizer middleware.Authorizer,
	health *handler.Health,
	logger *logger.Logger,
) *Router {
	return &Router{
		authorizer: authorizer,
		health:     health,
		logger:     logger,
	}
}

var publicPrefixes = []string{
	"/" + healthpb.Health_ServiceDesc.ServiceName + "/",
	"/grpc.reflection.",
}

// requiresAuth reports whether the call must carry a bearer token.
func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(c.FullMethod(), prefix) {
			return false
		}
	}
	return true
}

// Register registers all gRPC services and middleware.
// It sets up the gRPC server with tracing, request logging and
// authentication interceptors.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.authorizer, r.logger)

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleGRPCStream,
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	)

	healthpb.RegisterHealthServer(s, r.health.Server())
	reflection.Register(s)

	return s
}
