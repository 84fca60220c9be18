package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-engine/internal/handler"
	"github.com/campuskit/attendance-engine/internal/middleware"
	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/internal/repository"
	"github.com/campuskit/attendance-engine/internal/service"
	"github.com/campuskit/attendance-engine/pkg/cache"
	"github.com/campuskit/attendance-engine/pkg/config"
	"github.com/campuskit/attendance-engine/pkg/database"
	"github.com/campuskit/attendance-engine/pkg/logger"
	corsmiddleware "github.com/campuskit/attendance-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/attendance-engine/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	attendanceRepo := repository.NewAttendanceRepository(db)
	cardBindingRepo := repository.NewCardBindingRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()

	scheduleSvc, err := service.NewScheduleService(settingsRepo, redisClient, cfg.Attendance, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid attendance configuration", "error", err)
	}

	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications, logr)

	reconciler := service.NewAttendanceReconciler(attendanceRepo, logr)
	pairingSvc := service.NewPairingService(cardBindingRepo, cfg.Pairing, metricsSvc, logr)
	scanSvc := service.NewScanService(pairingSvc, cardBindingRepo, scheduleSvc, reconciler, metricsSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, logr)
	approvalSvc := service.NewApprovalService(requestRepo, reconciler,
		func(tx *sqlx.Tx) service.AttendanceTxStore { return attendanceRepo.WithTx(tx) },
		notificationSvc, logr)

	closeoutSvc, err := service.NewCloseoutService(attendanceRepo, settingsRepo, scheduleSvc, cfg.Closeout, metricsSvc, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid closeout configuration", "error", err)
	}

	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	notificationSvc.Start(runCtx)
	defer notificationSvc.Stop()
	if cfg.Closeout.Enabled {
		closeoutSvc.Start(runCtx)
		defer closeoutSvc.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsSvc.Handler())

	scanHandler := handler.NewScanHandler(scanSvc)
	pairingHandler := handler.NewPairingHandler(pairingSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	closeoutHandler := handler.NewCloseoutHandler(closeoutSvc)

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret)

	api := r.Group(cfg.APIPrefix)
	{
		// Reader devices authenticate at the network layer.
		scans := api.Group("/scans")
		{
			scans.POST("/card", scanHandler.Card)
			scans.POST("/qr", scanHandler.QR)
		}

		authed := api.Group("")
		authed.Use(middleware.JWT(verifier))
		{
			pairing := authed.Group("/pairing")
			{
				pairing.POST("/start", pairingHandler.Start)
				pairing.GET("/status", pairingHandler.Status)
				pairing.POST("/confirm", pairingHandler.Confirm)
				pairing.DELETE("", pairingHandler.Cancel)
			}

			requests := authed.Group("/requests")
			requests.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
			{
				requests.POST("/:id/approve", approvalHandler.Approve)
				requests.POST("/:id/reject", approvalHandler.Reject)
				requests.GET("/:id/history", approvalHandler.History)
			}

			attendance := authed.Group("/attendance")
			{
				attendance.GET("", attendanceHandler.List)
				attendance.GET("/monthly/:personId", attendanceHandler.Monthly)
				attendance.GET("/absences", attendanceHandler.AbsenceDetails)
			}

			closeout := authed.Group("/closeout")
			closeout.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				closeout.POST("/run", closeoutHandler.Run)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
