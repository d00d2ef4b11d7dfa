package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dtroode/valhalla-auth/internal/api/http/handler"
	"github.com/dtroode/valhalla-auth/internal/api/http/middleware"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

// Prefix is the path prefix of every REST route.
const Prefix = "/api/v2"

// Router represents the REST router for authentication operations.
type Router struct {
	authenticator  handler.Authenticator
	authorizer     handler.Authorizer
	passwordSetup  handler.PasswordSetup
	users          handler.UserManager
	db             handler.Pinger
	contextManager model.ContextManager
	logger         *logger.Logger
	enableLogout   bool
}

// Option configures a Router.
type Option func(*Router)

// WithLogout routes POST /auth/logout. It needs a revocation store behind
// the authorizer.
func WithLogout() Option {
	return func(r *Router) {
		r.enableLogout = true
	}
}

// New creates a new REST Router instance.
func New(
	authenticator handler.Authenticator,
	authorizer handler.Authorizer,
	passwordSetup handler.PasswordSetup,
	users handler.UserManager,
	db handler.Pinger,
	contextManager model.ContextManager,
	logger *logger.Logger,
	opts ...Option,
) *Router {
	r := &Router{
		authenticator:  authenticator,
		authorizer:     authorizer,
		passwordSetup:  passwordSetup,
		users:          users,
		db:             db,
		contextManager: contextManager,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register builds the gin engine with all routes and middleware.
func (r *Router) Register() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.NewLogging(r.logger).Handle)

	api := engine.Group(Prefix)
	r.registerAuthRoutes(api)
	r.registerUserRoutes(api)

	health := handler.NewHealth(r.db, r.logger)
	api.GET("/health", health.Check)

	return engine
}

func (r *Router) registerAuthRoutes(api *gin.RouterGroup) {
	authHandler := handler.NewAuth(r.authorizer, r.passwordSetup, r.contextManager, r.logger)
	bearer := middleware.NewAuthenticate(r.authorizer, r.logger)
	local := middleware.NewLocalCredentials(r.authenticator, r.logger)

	auth := api.Group("/auth")
	auth.POST("/login", local.Handle, authHandler.Login)
	auth.GET("/me", bearer.Handle, authHandler.Me)
	auth.POST("/set-password", authHandler.SetPassword)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	if r.enableLogout {
		auth.POST("/logout", bearer.Handle, authHandler.Logout)
	}
}

func (r *Router) registerUserRoutes(api *gin.RouterGroup) {
	usersHandler := handler.NewUsers(r.users, r.logger)
	bearer := middleware.NewAuthenticate(r.authorizer, r.logger)

	users := api.Group("/users")
	users.POST("", usersHandler.Register)

	guarded := users.Group("", bearer.Handle)
	guarded.GET("", usersHandler.List)
	guarded.GET("/:id", usersHandler.Get)
	guarded.PATCH("/:id", usersHandler.Update)
	guarded.DELETE("/:id", usersHandler.Delete)
}
