package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/api"
	"github.com/careloop/careline/internal/cache"
	"github.com/careloop/careline/internal/config"
	"github.com/careloop/careline/internal/db"
	"github.com/careloop/careline/internal/events"
	"github.com/careloop/careline/internal/messaging"
	"github.com/careloop/careline/internal/middleware"
	"github.com/careloop/careline/internal/observ"
	"github.com/careloop/careline/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline — Background() is the right root;
	// once serving, every request carries its own context.
	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	// Redis is an optimization, not a dependency: if it is down we log
	// and serve unread counts straight from Postgres.
	var unreadCache messaging.UnreadCache
	redisCache, err := cache.New(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Warn("redis unavailable, unread counts uncached", zap.Error(err))
	} else {
		defer redisCache.Close()
		unreadCache = redisCache
	}

	// Same for the event broker: unconfigured means events are dropped.
	publisher := events.NewNop()
	if cfg.AMQPURL != "" {
		publisher, err = events.New(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("connect to amqp: %w", err)
		}
	}
	defer publisher.Close()

	pool := database.Pool()
	accountRepo := postgres.NewAccountStore(pool)
	tenantRepo := postgres.NewTenantStore(pool)
	patientRepo := postgres.NewPatientStore(pool)
	staffRepo := postgres.NewStaffStore(pool)
	conversationRepo := postgres.NewConversationStore(pool)
	messageRepo := postgres.NewMessageStore(pool)

	identity := messaging.NewIdentityResolver(accountRepo, patientRepo, tenantRepo, logger)
	service := messaging.NewService(
		conversationRepo,
		messageRepo,
		patientRepo,
		staffRepo,
		identity,
		unreadCache,
		publisher,
		logger,
	)

	authHandler := api.NewAuthHandler(accountRepo, cfg.JWTSecret, logger)
	conversationHandler := api.NewConversationHandler(service, logger)
	messageHandler := api.NewMessageHandler(service, logger)
	meHandler := api.NewMeHandler(identity, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Public: load balancers health-check without credentials, and login
	// is what produces credentials in the first place.
	router.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/v1/auth/login", authHandler.Login)

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.GET("/me", meHandler.Get)
	v1.GET("/conversations", conversationHandler.List)
	v1.GET("/conversations/:id", conversationHandler.Get)
	v1.GET("/conversations/:id/messages", conversationHandler.ListMessages)
	v1.POST("/conversations/:id/read", conversationHandler.MarkRead)
	v1.POST("/messages", messageHandler.Send)
	v1.DELETE("/messages/:id", messageHandler.Delete)
	v1.GET("/unread-count", messageHandler.UnreadCount)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting careline",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-shutdownCtx.Done():
	}

	logger.Info("shutting down")
	timeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(timeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
