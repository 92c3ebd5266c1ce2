package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otravers/otravers/backend/go-services/handlers"
	"github.com/otravers/otravers/backend/go-services/internal/auth"
	"github.com/otravers/otravers/backend/go-services/internal/config"
	"github.com/otravers/otravers/backend/go-services/internal/database"
	"github.com/otravers/otravers/backend/go-services/internal/security"
	"github.com/otravers/otravers/backend/go-services/internal/sessions"
	"github.com/otravers/otravers/backend/go-services/internal/storage"
	"github.com/otravers/otravers/backend/go-services/internal/tokens"
	"github.com/otravers/otravers/backend/go-services/internal/users"
	"github.com/otravers/otravers/backend/go-services/pkg/logger"
	"github.com/otravers/otravers/backend/go-services/pkg/metrics"
	"github.com/otravers/otravers/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetEncoding(cfg.Log.Encoding)
	logger.Infof("config loaded: env=%s mongo=%v redis=%v minio=%v", cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx := context.Background()
	deps := map[string]handlers.Pinger{}

	mongoClient, err := connectMongoWithRetry(ctx, cfg)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(cfg.MongoDB.Database)
	deps["mongo"] = pingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) })

	userRepo := users.NewMongoRepository(db.Collection("users"))
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("failed to create user indexes: %v", err)
	}
	userSvc := users.NewService(userRepo, security.NewHasher(cfg.Security.BcryptCost))

	// Redis is optional: sessions fall back to Mongo and the rate limiter to memory.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.Redis, 5*time.Second)
		if err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			defer func() { _ = redisClient.Close() }()
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
	}

	store, err := sessionStore(ctx, cfg, redisClient, db)
	if err != nil {
		logger.Fatalf("failed to set up session store: %v", err)
	}
	deps["sessions"] = store

	codec, err := tokens.NewCodec(cfg)
	if err != nil {
		logger.Fatalf("invalid token configuration: %v", err)
	}
	authSvc := auth.NewService(userSvc, store, codec, userSvc.Hasher(), auth.WithSessionTTL(cfg.Session.TTL))
	protect := middleware.SessionAuth(codec, store)

	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.CORS(cfg.Server.ClientURL))
	r.Use(gin.Logger(), gin.Recovery())

	// The limiter runs after the session gate on protected routes, so those
	// are limited per user; public routes are limited per client IP.
	guards := handlers.Guards{Protected: []gin.HandlerFunc{protect}}
	if limiter := rateLimiter(cfg, redisClient); limiter != nil {
		guards.Public = append(guards.Public, limiter)
		guards.Protected = append(guards.Protected, limiter)
	}

	root := &r.RouterGroup
	handlers.NewAuthHandler(cfg, authSvc, userSvc).Register(root, guards)

	if cfg.MinIO.Endpoint != "" {
		blobs, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("media disabled: %v", err)
		} else {
			handlers.NewMediaHandler(storage.NewMedia(blobs)).Register(root, guards)
			deps["media"] = blobs
		}
	}

	handlers.RegisterSwagger(r)
	handlers.RegisterHealth(r, deps)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting auth service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("forced shutdown: %v", err)
	}
}

func rateLimiter(cfg *config.Config, rc *redis.Client) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.UseRedis && rc != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		return middleware.RedisRateLimitMiddleware(rc, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
	}
	return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// connectMongoWithRetry tolerates startup races with the database container.
func connectMongoWithRetry(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, lastErr
}

type pingableStore interface {
	sessions.Store
	Ping(ctx context.Context) error
}

// sessionStore prefers Redis unless SESSION_BACKEND=mongo or Redis is unreachable.
func sessionStore(ctx context.Context, cfg *config.Config, rc *redis.Client, db *mongo.Database) (pingableStore, error) {
	if rc != nil && cfg.Session.Backend != "mongo" {
		logger.Infof("using Redis for session storage")
		return sessions.NewRedisStore(rc, cfg.Session.KeyPrefix), nil
	}
	if cfg.Session.Backend == "redis" {
		logger.Warnf("SESSION_BACKEND=redis but Redis is unavailable, falling back to MongoDB")
	}
	ms := sessions.NewMongoStore(db.Collection("sessions"))
	if err := ms.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	logger.Infof("using MongoDB for session storage")
	return ms, nil
}
