package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

// SignInResultKey is the gin context key under which the credential
// middleware leaves a successful sign-in.
const SignInResultKey = "valhalla.signInResult"

// Authenticator verifies local credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (model.SignInResult, error)
}

// Authorizer validates and revokes bearer tokens.
type Authorizer interface {
	Authorize(ctx context.Context, authorization string) (context.Context, error)
	Revoke(ctx context.Context, authorization string) error
}

// PasswordSetup drives the reset token flow.
type PasswordSetup interface {
	SetPassword(ctx context.Context, token, newPassword string) error
	RequestResetByEmail(ctx context.Context, email string) error
}

// SetSignInResult stores result for the login handler.
func SetSignInResult(c *gin.Context, result model.SignInResult) {
	c.Set(SignInResultKey, result)
}

func signInResult(c *gin.Context) (model.SignInResult, bool) {
	v, ok := c.Get(SignInResultKey)
	if !ok {
		return model.SignInResult{}, false
	}
	result, ok := v.(model.SignInResult)
	return result, ok
}

// Auth serves the /auth endpoints.
type Auth struct {
	authorizer     Authorizer
	passwordSetup  PasswordSetup
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authorizer Authorizer,
	passwordSetup PasswordSetup,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authorizer:     authorizer,
		passwordSetup:  passwordSetup,
		contextManager: contextManager,
		logger:         logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login answers with the token issued by the credential middleware.
func (h *Auth) Login(c *gin.Context) {
	result, ok := signInResult(c)
	if !ok {
		WriteError(c, h.logger, apierrors.NewErrInvalidCredentials())
		return
	}

	c.JSON(http.StatusOK, result)
}

// Me returns the identity attached by the bearer middleware.
func (h *Auth) Me(c *gin.Context) {
	user, ok := h.contextManager.GetUserFromContext(c.Request.Context())
	if !ok {
		WriteError(c, h.logger, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	c.JSON(http.StatusOK, user.Redacted())
}

// Logout revokes the presented bearer token.
func (h *Auth) Logout(c *gin.Context) {
	if err := h.authorizer.Revoke(c.Request.Context(), c.GetHeader("Authorization")); err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type setPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword"`
	// Password is accepted as an alias of NewPassword.
	Password string `json:"password"`
}

// SetPassword consumes a reset token and stores the new password.
func (h *Auth) SetPassword(c *gin.Context) {
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	newPassword := req.NewPassword
	if newPassword == "" {
		newPassword = req.Password
	}

	if err := h.passwordSetup.SetPassword(c.Request.Context(), req.Token, newPassword); err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password set successfully."})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword starts a reset for the given email. The answer is the same
// whether or not the account exists.
func (h *Auth) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	if err := h.passwordSetup.RequestResetByEmail(c.Request.Context(), req.Email); err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, messageResponse{
		Message: "If the account exists, a password reset link has been sent.",
	})
}
