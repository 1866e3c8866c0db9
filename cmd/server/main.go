package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/socialgraph/internal/config"
	"github.com/HammerMeetNail/socialgraph/internal/database"
	"github.com/HammerMeetNail/socialgraph/internal/handlers"
	"github.com/HammerMeetNail/socialgraph/internal/logging"
	"github.com/HammerMeetNail/socialgraph/internal/middleware"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

const (
	defaultFriendRequestLimit  = 3
	defaultFriendRequestWindow = time.Minute
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting socialgraph server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if err := runMigrations(cfg, logger); err != nil {
		return err
	}

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(userService, redisAdapter, cfg.Auth)
	friendStore := services.NewPostgresFriendRequestStore(dbAdapter)
	friendService := services.NewFriendService(friendStore, userService)
	friendService.SetStoreTimeout(cfg.Store.Timeout)

	// Handlers
	validator, err := handlers.NewValidator()
	if err != nil {
		return fmt.Errorf("initializing validator: %w", err)
	}
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, validator)
	userHandler := handlers.NewUserHandler(userService)
	friendHandler := handlers.NewFriendHandler(friendService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userService)
	requestLogger := middleware.NewRequestLogger(logger)

	limit, window := resolveFriendRequestRateLimit(cfg, logger)
	friendRequestLimiter := middleware.NewRateLimiter(redisDB.Client, limit, window, "ratelimit:friend-request:", friendRequestKey, cfg.RateLimit.FailOpen)

	handler := newRouter(routes{
		health:               healthHandler,
		auth:                 authHandler,
		users:                userHandler,
		friends:              friendHandler,
		authMiddleware:       authMiddleware,
		friendRequestLimiter: friendRequestLimiter,
		requestLogger:        requestLogger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

type routes struct {
	health               *handlers.HealthHandler
	auth                 *handlers.AuthHandler
	users                *handlers.UserHandler
	friends              *handlers.FriendHandler
	authMiddleware       *middleware.AuthMiddleware
	friendRequestLimiter *middleware.RateLimiter
	requestLogger        *middleware.RequestLogger
}

func newRouter(rt routes) http.Handler {
	requireAuth := rt.authMiddleware.RequireAuth

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", rt.health.Health)
	mux.HandleFunc("GET /ready", rt.health.Ready)
	mux.HandleFunc("GET /live", rt.health.Live)

	// Auth endpoints
	mux.HandleFunc("POST /signup", rt.auth.Signup)
	mux.HandleFunc("POST /login", rt.auth.Login)
	mux.HandleFunc("POST /token/refresh", rt.auth.Refresh)

	mux.Handle("GET /search", requireAuth(http.HandlerFunc(rt.users.Search)))

	// Friend endpoints. The limiter runs after RequireAuth so it is keyed by the caller.
	mux.Handle("POST /friends/send", requireAuth(rt.friendRequestLimiter.Middleware(http.HandlerFunc(rt.friends.SendRequest))))
	mux.Handle("POST /friends/accept/{id}", requireAuth(http.HandlerFunc(rt.friends.AcceptRequest)))
	mux.Handle("POST /friends/reject/{id}", requireAuth(http.HandlerFunc(rt.friends.RejectRequest)))
	mux.Handle("GET /friends/list", requireAuth(http.HandlerFunc(rt.friends.List)))
	mux.Handle("GET /friends/pending", requireAuth(http.HandlerFunc(rt.friends.Pending)))

	// Build middleware chain (order matters: outermost last)
	var handler http.Handler = mux
	handler = rt.authMiddleware.Authenticate(handler)
	handler = rt.requestLogger.Apply(handler)
	return handler
}

func friendRequestKey(r *http.Request) string {
	if user := handlers.GetUserFromContext(r.Context()); user != nil {
		return user.ID.String()
	}
	return ""
}

func runMigrations(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Running database migrations...", map[string]interface{}{"dir": cfg.Server.MigrationsDir})
	migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Server.MigrationsDir)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("reading migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database schema is dirty at version %d", version)
	}
	logger.Info("Migrations completed", map[string]interface{}{"version": version})
	return nil
}

func resolveFriendRequestRateLimit(cfg *config.Config, logger *logging.Logger) (int64, time.Duration) {
	limit := cfg.RateLimit.FriendRequestLimit
	if limit <= 0 {
		logger.Warn("Invalid FRIEND_REQUEST_RATE_LIMIT; using default", map[string]interface{}{
			"value": limit,
			"limit": defaultFriendRequestLimit,
		})
		limit = defaultFriendRequestLimit
	}
	window := cfg.RateLimit.FriendRequestWindow
	if window <= 0 {
		window = defaultFriendRequestWindow
	}
	if limit != defaultFriendRequestLimit || window != defaultFriendRequestWindow {
		logger.Info("Using friend request rate limit from env", map[string]interface{}{
			"limit":  limit,
			"window": window.String(),
		})
	}
	return limit, window
}
