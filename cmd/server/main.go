package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	grpchandler "github.com/dtroode/valhalla-auth/internal/api/grpc/handler"
	grpcrouter "github.com/dtroode/valhalla-auth/internal/api/grpc/router"
	grpcserver "github.com/dtroode/valhalla-auth/internal/api/grpc/server"
	httprouter "github.com/dtroode/valhalla-auth/internal/api/http/router"
	httpserver "github.com/dtroode/valhalla-auth/internal/api/http/server"
	"github.com/dtroode/valhalla-auth/internal/config"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/notify"
	"github.com/dtroode/valhalla-auth/internal/password"
	platformotel "github.com/dtroode/valhalla-auth/internal/platform/otel"
	"github.com/dtroode/valhalla-auth/internal/repository/postgres"
	"github.com/dtroode/valhalla-auth/internal/repository/redis"
	"github.com/dtroode/valhalla-auth/internal/requestctx"
	"github.com/dtroode/valhalla-auth/internal/server"
	"github.com/dtroode/valhalla-auth/internal/service"
	storage "github.com/dtroode/valhalla-auth/internal/storage/minio"
	"github.com/dtroode/valhalla-auth/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET is the development default or too short; set a random secret before deploying")
	}

	shutdownTracing, err := platformotel.Setup(ctx, cfg.OTEL.Endpoint, cfg.OTEL.ServiceName, buildVersion)
	if err != nil {
		logger.Fatal("failed to initialize tracing", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	resetTokenRepo := postgres.NewResetTokenRepository(db)
	hasher := password.NewHasher(cfg.Password.Cost, cfg.Password.MaxConcurrent)
	tokenManager := token.NewJWT(cfg.JWT.Secret, token.WithTTL(cfg.JWT.TTL))
	ctxMgr := requestctx.NewManager()

	var revocationStore model.RevocationStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		revocationStore = redis.NewRevocationRepository(redisClient)
		logger.Info("token revocation enabled", "redis", cfg.Redis.Addr)
	}

	notifier, err := newNotifier(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize notifier", "error", err)
	}

	authService := service.NewAuth(userRepo, hasher, tokenManager, logger)
	guard := service.NewGuard(tokenManager, userRepo, revocationStore, ctxMgr, logger)
	passwordSetup := service.NewPasswordSetup(userRepo, resetTokenRepo, hasher, notifier, logger,
		service.WithResetTTL(cfg.Reset.TTL),
		service.WithResetBaseURL(cfg.Reset.BaseURL),
	)
	usersService := service.NewUsers(userRepo, hasher, passwordSetup, ctxMgr, logger)

	var routerOpts []httprouter.Option
	if revocationStore != nil {
		routerOpts = append(routerOpts, httprouter.WithLogout())
	}
	engine := httprouter.New(authService, guard, passwordSetup, usersService, db, ctxMgr, logger, routerOpts...).Register()
	restServer := httpserver.NewHTTPServer(engine, fmt.Sprintf(":%s", cfg.HTTP.Port))

	health := grpchandler.NewHealth(db, logger)
	rpcServer := grpcserver.NewGRPCServer(
		grpcrouter.New(guard, health, logger).Register(),
		fmt.Sprintf(":%s", cfg.GRPC.Port),
	)

	var wg sync.WaitGroup
	start := func(s model.Server, sl model.SecurityLayer) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}()
	}
	start(restServer, server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName))
	start(rpcServer, server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName))

	wg.Add(2)
	go func() {
		defer wg.Done()
		health.Watch(ctx, healthCheckInterval)
	}()
	go func() {
		defer wg.Done()
		purgeExpiredResetTokens(ctx, passwordSetup, cfg.Reset.PurgeInterval, logger)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range []model.Server{restServer, rpcServer} {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newNotifier spools reset emails to object storage when it is configured
// and only logs them otherwise.
func newNotifier(ctx context.Context, cfg config.Storage, logger *logger.Logger) (model.Notifier, error) {
	if cfg.Endpoint == "" {
		logger.Warn("MINIO_ENDPOINT is empty; password reset links are only logged")
		return notify.NewLog(logger), nil
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}

	return notify.NewSpool(storageClient, cfg.MailFrom, logger), nil
}

func purgeExpiredResetTokens(ctx context.Context, setup *service.PasswordSetup, interval time.Duration, logger *logger.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := setup.PurgeExpired(ctx)
			if err != nil {
				logger.Error("failed to purge expired reset tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired reset tokens", "count", n)
			}
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
