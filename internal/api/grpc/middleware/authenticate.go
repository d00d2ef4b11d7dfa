package middleware

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/dtroode/valhalla-auth/internal/api/grpc/handler"
	"github.com/dtroode/valhalla-auth/internal/logger"
)

// Authorizer resolves a bearer Authorization value into an authenticated
// request context.
type Authorizer interface {
	Authorize(ctx context.Context, authorization string) (context.Context, error)
}

// Authenticate validates bearer tokens carried in call metadata.
type Authenticate struct {
	authorizer Authorizer
	logger     *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authorizer Authorizer, logger *logger.Logger) *Authenticate {
	return &Authenticate{authorizer: authorizer, logger: logger}
}

// AuthFunc reads the authorization metadata and returns a context carrying
// the identity.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			authorization = values[0]
		}
	}

	authCtx, err := m.authorizer.Authorize(ctx, authorization)
	if err != nil {
		m.logger.Debug("gRPC authentication rejected", "error", err.Error())
		return nil, handler.ToStatus(err)
	}

	return authCtx, nil
}
