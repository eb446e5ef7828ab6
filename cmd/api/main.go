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

	"github.com/worktrackhq/worktrack-backend-go/internal/config"
	appHTTP "github.com/worktrackhq/worktrack-backend-go/internal/handler/http"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/cron"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/database"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/email"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/jwt"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/sse"
	"github.com/worktrackhq/worktrack-backend-go/internal/repository/postgresql"
	approvalService "github.com/worktrackhq/worktrack-backend-go/internal/service/approval"
	notificationService "github.com/worktrackhq/worktrack-backend-go/internal/service/notification"
	sessionService "github.com/worktrackhq/worktrack-backend-go/internal/service/session"
	summaryService "github.com/worktrackhq/worktrack-backend-go/internal/service/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	sessionRepo := postgresql.NewSessionRepository(db)
	approvalRepo := postgresql.NewApprovalRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	ledgerRepo := postgresql.NewLedgerRepository(db)
	workerRepo := postgresql.NewWorkerRepository(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	hub := sse.NewHub()
	stream := sse.NewSessionStream(hub)

	dispatcher, err := email.NewDispatcher(cfg.SMTP, workerRepo)
	if err != nil {
		log.Fatal("Failed to initialize email dispatcher:", err)
	}

	notifSvc := notificationService.NewNotificationService(
		notificationRepo,
		ledgerRepo,
		dispatcher,
		hub,
		notificationService.Config{
			MaxAttempts:    cfg.Engine.NotifyMaxAttempts,
			AttemptTimeout: cfg.Engine.NotifyAttemptTimeout,
			ClaimTTL:       cfg.Engine.DispatchClaimTTL,
		},
	)
	sessionSvc := sessionService.NewSessionService(
		sessionRepo,
		stream,
		notifSvc,
		sessionService.Config{StaleSessionWindow: cfg.Engine.StaleSessionWindow},
	)
	summarySvc := summaryService.NewSummaryService(sessionRepo, cfg.Engine.DailyOvertimeThresholdMinutes)
	approvalSvc := approvalService.NewApprovalService(approvalRepo, notifSvc, stream)

	scheduler := cron.NewScheduler()
	cron.NewSessionJobs(sessionSvc).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	sessionHandler := appHTTP.NewSessionHandler(sessionSvc)
	approvalHandler := appHTTP.NewApprovalHandler(approvalSvc)
	summaryHandler := appHTTP.NewSummaryHandler(summarySvc)
	notificationHandler := appHTTP.NewNotificationHandler(notifSvc)
	streamHandler := appHTTP.NewStreamHandler(hub, jwtService)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			FrontendURL: cfg.App.FrontendURL,
			Env:         cfg.App.Env,
		},
		jwtService,
		sessionHandler,
		approvalHandler,
		summaryHandler,
		notificationHandler,
		streamHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		fmt.Printf("Server running at http://localhost%s\n", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Println("Server shutdown error:", err)
	}
}
