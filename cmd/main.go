package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "talentdesk/docs"
	"talentdesk/internal/caching"
	"talentdesk/internal/common"
	"talentdesk/internal/config"
	"talentdesk/internal/handlers"
	"talentdesk/internal/jobs/background"
	"talentdesk/internal/logger"
	"talentdesk/internal/middleware"
	"talentdesk/internal/repositories"
	"talentdesk/internal/services"
	"talentdesk/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "talentdesk")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.JWTSecretGenerated {
		zlog.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, zlog)
	if err != nil {
		zlog.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		zlog.Fatal("apply schema", zap.Error(err))
	}

	redisClient := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient, zlog)
	if err := cacheSvc.Ping(ctx); err != nil {
		zlog.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Résumé storage is optional; without it uploads answer 503 and
	// applications are stored without a profile.
	var (
		resumeStore     services.ResumeStore
		resumeExtractor services.ResumeExtractor
	)
	if cfg.MinioAccessKey != "" {
		store, err := services.NewMinioResumeStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.ResumeBucket)
		if err != nil {
			zlog.Fatal("create resume store", zap.Error(err))
		}
		if err := store.EnsureBucket(ctx); err != nil {
			zlog.Error("resume bucket unavailable, storage disabled", zap.String("bucket", cfg.ResumeBucket), zap.Error(err))
		} else {
			resumeStore = store
			resumeExtractor = services.NewResumeExtractor(store, zlog)
		}
	}

	// Repositories
	tx := repositories.NewTxManager(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	identityRepo := repositories.NewIdentityRepo(pool)
	jobRepo := repositories.NewJobRepo(pool)
	guestRepo := repositories.NewGuestApplicationRepo(pool)
	applicationRepo := repositories.NewApplicationRepo(pool)
	integrityRepo := repositories.NewIntegrityRepo(pool)

	// Notifications
	dispatcher := services.NewNotificationDispatcher(redisClient, zlog)
	sender := services.NewLogSender(zlog)
	if cfg.NotificationWebhookURL != "" {
		sender = services.NewWebhookSender(cfg.NotificationWebhookURL, 10*time.Second)
	}
	notificationWorker := services.NewNotificationWorker(redisClient, sender, zlog)

	// Services
	quotaSvc := services.NewQuotaService(tenantRepo, zlog)
	tenantSvc := services.NewTenantService(tenantRepo, quotaSvc, tx, cacheSvc, zlog)
	identitySvc := services.NewIdentityService(identityRepo, tenantRepo, quotaSvc, services.NewBcryptHasher(0), tx, zlog)
	authSvc := services.NewAuthService(cacheSvc, identityRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, zlog)
	jobSvc := services.NewJobService(jobRepo, zlog)
	applicationSvc := services.NewApplicationService(services.ApplicationServiceDeps{
		Applications: applicationRepo,
		Guests:       guestRepo,
		Jobs:         jobRepo,
		Identities:   identityRepo,
		Tx:           tx,
		Extractor:    resumeExtractor,
		Resumes:      resumeStore,
		Dispatcher:   dispatcher,
		ResumeURLTTL: cfg.ResumeURLTTL,
		Logger:       zlog,
	})
	statusSvc := services.NewStatusService(applicationRepo, tx, dispatcher, zlog)
	conversionSvc := services.NewConversionService(guestRepo, applicationRepo, jobRepo, identityRepo,
		identitySvc, authSvc, tx, dispatcher, zlog)
	integritySvc := services.NewIntegrityService(integrityRepo, zlog)

	if cfg.BootstrapAdminEmail != "" {
		bootstrapPlatformAdmin(ctx, identitySvc, cfg, zlog)
	}

	scheduler, err := background.NewJobScheduler(notificationWorker, integritySvc, background.Settings{
		NotificationInterval:  cfg.NotificationInterval,
		NotificationBatchSize: cfg.NotificationBatchSize,
		IntegrityScanInterval: cfg.IntegrityScanInterval,
	}, zlog)
	if err != nil {
		zlog.Fatal("create scheduler", zap.Error(err))
	}
	scheduler.Start()

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(readinessChecks(pool.Ping, cacheSvc, resumeStore), version, zlog)
	authHandlers := handlers.NewAuthHandlers(authSvc, identitySvc, tenantSvc, zlog)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc, zlog)
	identityHandlers := handlers.NewIdentityHandlers(identitySvc, zlog)
	jobHandlers := handlers.NewJobHandlers(jobSvc, zlog)
	applicationHandlers := handlers.NewApplicationHandlers(applicationSvc, statusSvc, zlog)
	guestHandlers := handlers.NewGuestHandlers(applicationSvc, conversionSvc, resumeStore, zlog)
	adminHandlers := handlers.NewAdminHandlers(integritySvc, notificationWorker, cfg.NotificationBatchSize, zlog)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(zlog))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.RejectUnknownVersion())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.Liveness)
	e.GET("/health/ready", healthHandlers.Readiness)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := versionMiddleware.VersionRoute(e, "v1")

	// Authentication routes (no JWT required for register/login)
	auth := v1.Group("/auth")
	auth.POST("/login", authHandlers.Login)
	auth.POST("/register", authHandlers.Register)
	auth.POST("/refresh", authHandlers.Refresh)

	// Public applicant surface
	public := v1.Group("/public")
	public.GET("/jobs/:id", jobHandlers.GetPublicJob)
	public.POST("/jobs/:id/guest-applications", guestHandlers.SubmitGuestApplication,
		middleware.RateLimit(cacheSvc, "guest-apply", cfg.GuestRateLimit, cfg.GuestRateWindow, zlog))
	public.GET("/guest-applications/:token", guestHandlers.TrackGuestApplication)
	public.POST("/guest-applications/:token/convert", guestHandlers.ConvertGuestApplication,
		middleware.RateLimit(cacheSvc, "guest-convert", cfg.GuestRateLimit, cfg.GuestRateWindow, zlog))
	public.POST("/resumes", guestHandlers.UploadResume,
		echoMiddleware.BodyLimit("6M"),
		middleware.RateLimit(cacheSvc, "resume-upload", cfg.GuestRateLimit, cfg.GuestRateWindow, zlog))

	// Protected routes
	protected := v1.Group("", middleware.JWT(authSvc, zlog))
	protected.POST("/auth/logout", authHandlers.Logout)
	protected.GET("/me", authHandlers.Me)

	admins := middleware.RequireRole(common.RoleSuperAdmin, common.RoleAdmin)
	staff := middleware.RequireStaff()

	tenants := protected.Group("/tenants", admins)
	tenants.GET("", tenantHandlers.ListTenants)
	tenants.POST("", tenantHandlers.CreateTenant)
	tenants.GET("/:id", tenantHandlers.GetTenant)
	tenants.PUT("/:id", tenantHandlers.UpdateTenant)
	tenants.DELETE("/:id", tenantHandlers.DeleteTenant)
	tenants.GET("/:id/usage", tenantHandlers.GetTenantUsage)

	identities := protected.Group("/identities", admins)
	identities.GET("", identityHandlers.ListIdentities)
	identities.POST("", identityHandlers.CreateIdentity)
	identities.GET("/:id", identityHandlers.GetIdentity)
	identities.POST("/:id/deactivate", identityHandlers.DeactivateIdentity)
	identities.POST("/:id/reactivate", identityHandlers.ReactivateIdentity)
	identities.DELETE("/:id", identityHandlers.DeleteIdentity)

	jobs := protected.Group("/jobs")
	jobs.GET("", jobHandlers.ListJobs, staff)
	jobs.POST("", jobHandlers.CreateJob, staff)
	jobs.GET("/:id", jobHandlers.GetJob, staff)
	jobs.POST("/:id/publish", jobHandlers.PublishJob, staff)
	jobs.POST("/:id/close", jobHandlers.CloseJob, staff)
	jobs.POST("/:id/applications", applicationHandlers.SubmitApplication, middleware.RequireRole(common.RoleCandidate))
	jobs.GET("/:id/applications", applicationHandlers.ListJobApplications, staff)

	// Candidates may read their own applications; the service enforces ownership.
	applications := protected.Group("/applications")
	applications.GET("/:id", applicationHandlers.GetApplication)
	applications.GET("/:id/resume", applicationHandlers.GetResumeURL)
	applications.PUT("/:id/status", applicationHandlers.TransitionStatus, staff)
	applications.POST("/:id/notes", applicationHandlers.AddNote, staff)
	applications.PUT("/:id/notes/:index", applicationHandlers.EditNote, staff)

	platform := protected.Group("/admin", middleware.RequireRole(common.RoleSuperAdmin))
	platform.POST("/integrity-scan", adminHandlers.ScanIntegrity)
	platform.POST("/notifications/drain", adminHandlers.DrainNotifications)

	go func() {
		zlog.Info("talentdesk server starting", zap.String("version", version), zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(); err != nil {
		zlog.Error("scheduler shutdown", zap.Error(err))
	}
	dispatcher.Wait()
}

func readinessChecks(dbPing handlers.PingFunc, cache caching.CacheService, resumes services.ResumeStore) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{
		"database": dbPing,
		"redis":    cache,
	}
	if resumes != nil {
		checks["storage"] = handlers.PingFunc(resumes.EnsureBucket)
	}
	return checks
}

// bootstrapPlatformAdmin creates the configured platform operator on first start.
func bootstrapPlatformAdmin(ctx context.Context, identities services.IdentityService, cfg *config.Config, logger *zap.Logger) {
	_, err := identities.Provision(ctx, services.ProvisionRequest{
		Role:      common.RoleSuperAdmin,
		Email:     cfg.BootstrapAdminEmail,
		Password:  cfg.BootstrapAdminPassword,
		FirstName: "Platform",
		LastName:  "Admin",
	})
	switch {
	case err == nil:
		logger.Info("platform administrator created", zap.String("email", cfg.BootstrapAdminEmail))
	case errors.Is(err, common.ErrDuplicateIdentity):
		logger.Debug("platform administrator already present")
	default:
		logger.Fatal("bootstrap platform administrator", zap.Error(err))
	}
}
