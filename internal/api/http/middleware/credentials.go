package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/valhalla-auth/internal/api/http/handler"
	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

// Authenticator verifies local credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (model.SignInResult, error)
}

// LocalCredentials authenticates the identifier and password in the request
// body and hands the sign-in result to the next handler.
type LocalCredentials struct {
	authenticator Authenticator
	logger        *logger.Logger
}

// NewLocalCredentials creates a new LocalCredentials middleware instance.
func NewLocalCredentials(authenticator Authenticator, logger *logger.Logger) *LocalCredentials {
	return &LocalCredentials{authenticator: authenticator, logger: logger}
}

type credentials struct {
	Identifier string `json:"identifier" binding:"required_without=Username"`
	// Username is accepted as an alias of Identifier.
	Username string `json:"username" binding:"required_without=Identifier"`
	Password string `json:"password" binding:"required"`
}

// Handle answers 401 for a missing field or bad credentials.
func (m *LocalCredentials) Handle(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		handler.WriteError(c, m.logger, apierrors.NewErrInvalidCredentials())
		return
	}

	identifier := body.Identifier
	if identifier == "" {
		identifier = body.Username
	}

	result, err := m.authenticator.Authenticate(c.Request.Context(), identifier, body.Password)
	if err != nil {
		handler.WriteError(c, m.logger, err)
		return
	}

	handler.SetSignInResult(c, result)
	c.Next()
}
