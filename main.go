package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"civicreport-be/config"
	"civicreport-be/controllers"
	"civicreport-be/middlewares"
	"civicreport-be/models"
	"civicreport-be/policy"
	"civicreport-be/repository"
	"civicreport-be/routes"
	"civicreport-be/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	repo, err := repository.New(ctx, cfg.StoreBackend, log, cfg)
	if err != nil {
		log.Errorw("repository initialization error", "error", err)
		return
	}
	if err := repo.OnStart(ctx); err != nil {
		log.Errorw("repository start error", "error", err)
		return
	}
	defer func() {
		_ = repo.OnStop(context.Background())
	}()
	log.Infow("store connected", "backend", cfg.StoreBackend)

	redisClient, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Errorw("redis initialization error", "error", err)
		return
	}

	statusRoles := make([]models.Role, 0, len(cfg.StatusRoles))
	for _, r := range cfg.StatusRoles {
		statusRoles = append(statusRoles, models.Role(r))
	}
	gate := policy.New(statusRoles)

	issueService := services.NewIssueService(repo, gate, log)
	authService := services.NewAuthService(repo, cfg.JwtSecret, cfg.JwtExpires, cfg.AllowSelfRoles, log)

	auth := middlewares.AuthMiddleware(authService, log)
	var limiter gin.HandlerFunc
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		limiter = middlewares.IssueRateLimiter(redisClient, cfg.IssueLimitKey, cfg.IssueDailyMax, log)
	} else {
		log.Warnw("REDIS_ADDRESS not set, issue rate limiting disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(log))
	r.Use(cors.New(corsConfig(cfg.CorsOrigins)))

	authController := controllers.NewAuthController(authService, log, cfg.RequestTimeout)
	routes.AuthRoutes(r, authController, auth)
	routes.ProfileRoutes(r, authController, auth)
	routes.IssueRoutes(r, controllers.NewIssueController(issueService, log, cfg.RequestTimeout), auth, limiter)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	go func() {
		log.Infow("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("server shutdown", "error", err, "timeout", shutdownTimeout)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middlewares.RequestIDHeader)
	c.ExposeHeaders = []string{middlewares.RequestIDHeader}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
