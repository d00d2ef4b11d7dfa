package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/valhalla-auth/internal/api/http/handler"
	"github.com/dtroode/valhalla-auth/internal/logger"
)

// Authorizer resolves a bearer Authorization header into an authenticated
// request context.
type Authorizer interface {
	Authorize(ctx context.Context, authorization string) (context.Context, error)
}

// Authenticate rejects requests without a valid bearer token.
type Authenticate struct {
	authorizer Authorizer
	logger     *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authorizer Authorizer, logger *logger.Logger) *Authenticate {
	return &Authenticate{authorizer: authorizer, logger: logger}
}

// Handle validates the Authorization header and replaces the request
// context with one carrying the identity.
func (m *Authenticate) Handle(c *gin.Context) {
	ctx, err := m.authorizer.Authorize(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		handler.WriteError(c, m.logger, err)
		return
	}

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
