package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/otp-auth-service/internal/config"
	"github.com/prperemyshlev/otp-auth-service/internal/handler"
	"github.com/prperemyshlev/otp-auth-service/internal/repository"
	"github.com/prperemyshlev/otp-auth-service/internal/service"
	"github.com/prperemyshlev/otp-auth-service/internal/utils"
	"github.com/prperemyshlev/otp-auth-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	authRoutePrefix = "/api/v1/auth"
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
	reaper *Reaper
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)
	hasher := utils.NewBcryptHasher(cfg.Security.BCryptCost)

	verification := service.NewVerificationService(repos, cfg.Verification.OTPTTL.Duration, cfg.Verification.ReaperGrace.Duration)
	passwordReset := service.NewPasswordResetService(repos, hasher, cfg.Verification.ResetTokenTTL.Duration, cfg.App.ClientBaseURL)
	blacklistCache := service.NewTokenBlacklistCache(infra.Redis())

	authService := service.NewAuthService(
		repos,
		jwtManager,
		hasher,
		infra.Mailer(),
		blacklistCache,
		verification,
		passwordReset,
		infra.Logger(),
	)

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider())
	if err != nil {
		return nil, err
	}

	errorRenderer := handler.NewErrorRenderer(infra.Logger(), cfg.IsDevelopment())
	authHandler := handler.NewAuthHandler(authService, errorRenderer, metrics, handler.CookieConfig{
		Path:   authRoutePrefix,
		MaxAge: int(cfg.JWT.RefreshTokenExpiry.Seconds()),
		Secure: cfg.IsProduction(),
	})
	healthChecker := NewHealthChecker(infra)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS))

	setupRoutes(router, authHandler, handler.AuthMiddleware(authService, errorRenderer), healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
		reaper: NewReaper(repos, cfg.Verification.ReaperInterval.Duration, cfg.Verification.ReaperGrace.Duration, infra.Logger()),
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	authHandler *handler.AuthHandler,
	requireAuth gin.HandlerFunc,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	auth := router.Group(authRoutePrefix)
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.POST("/refresh-token", authHandler.RefreshToken)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/reset-password-confirm", authHandler.ResetPasswordConfirm)
		auth.POST("/verify-otp", authHandler.VerifyOTP)
		auth.POST("/resend-otp", authHandler.ResendOTP)
		auth.GET("/me", requireAuth, authHandler.GetMe)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go a.reaper.Run(reaperCtx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}
	stopReaper()

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
