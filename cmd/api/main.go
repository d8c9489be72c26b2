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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/medicare-api/internal/config"
	"github.com/jwalitptl/medicare-api/internal/email"
	appointmentHandler "github.com/jwalitptl/medicare-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/medicare-api/internal/handler/auth"
	billingHandler "github.com/jwalitptl/medicare-api/internal/handler/billing"
	chatHandler "github.com/jwalitptl/medicare-api/internal/handler/chat"
	"github.com/jwalitptl/medicare-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/medicare-api/internal/handler/notification"
	patientHandler "github.com/jwalitptl/medicare-api/internal/handler/patient"
	reportHandler "github.com/jwalitptl/medicare-api/internal/handler/report"
	"github.com/jwalitptl/medicare-api/internal/middleware"
	"github.com/jwalitptl/medicare-api/internal/push"
	"github.com/jwalitptl/medicare-api/internal/repository/postgres"
	"github.com/jwalitptl/medicare-api/internal/router"
	appointmentService "github.com/jwalitptl/medicare-api/internal/service/appointment"
	authService "github.com/jwalitptl/medicare-api/internal/service/auth"
	billingService "github.com/jwalitptl/medicare-api/internal/service/billing"
	chatService "github.com/jwalitptl/medicare-api/internal/service/chat"
	notificationService "github.com/jwalitptl/medicare-api/internal/service/notification"
	patientService "github.com/jwalitptl/medicare-api/internal/service/patient"
	reportService "github.com/jwalitptl/medicare-api/internal/service/report"
	staffService "github.com/jwalitptl/medicare-api/internal/service/staff"
	"github.com/jwalitptl/medicare-api/pkg/auth"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/metrics"
	"github.com/jwalitptl/medicare-api/pkg/security"
	"github.com/jwalitptl/medicare-api/pkg/tracing"
)

const doctorDirectoryTTL = 5 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = *appLog.Zerolog()

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	repos := postgres.NewRepositories(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("medicare", "api", reg)

	ctx := context.Background()
	emailSender, err := email.New(ctx, cfg.Email, appLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure email")
	}
	pushSender, err := push.NewFCMSender(ctx, cfg.Push, appLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure push")
	}

	dispatcher := notificationService.NewDispatcher(
		repos.NotificationLogs,
		pushSender,
		emailSender,
		notificationService.Options{
			Workers:         cfg.Notification.Workers,
			QueueSize:       cfg.Notification.QueueSize,
			DeliveryTimeout: cfg.Notification.DeliveryTimeout,
		},
		appLog,
		m,
	)
	dispatcher.Start()

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)

	chatSvc := chatService.NewService(repos.Chat, repos.Outbox, repos.Tx)
	patientSvc := patientService.NewService(repos.Patients, hasher, dispatcher)
	workflow := appointmentService.NewWorkflow(appointmentService.WorkflowDeps{
		Tx:           repos.Tx,
		Requests:     repos.AppointmentRequests,
		Appointments: repos.Appointments,
		Patients:     repos.Patients,
		Staff:        repos.Staff,
		Outbox:       repos.Outbox,
		Chat:         chatSvc,
		Notifier:     dispatcher,
		Logger:       appLog,
		Metrics:      m,
	})
	appointmentSvc := appointmentService.NewService(repos.Appointments, repos.Patients, repos.Staff, dispatcher, appLog)
	authSvc := authService.NewService(repos.Staff, repos.Patients, jwtSvc, hasher, cfg.JWT.TTL(), appLog)
	billingSvc := billingService.NewService(repos.Tx, repos.Bills, repos.Patients, repos.Outbox, dispatcher, appLog)
	reportSvc := reportService.NewService(repos.Reports, repos.Patients, dispatcher)
	directory := staffService.NewDirectory(repos.Staff, doctorDirectoryTTL)
	logSvc := notificationService.NewLogService(repos.NotificationLogs)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(authMiddleware, router.Handlers{
		Health: health.NewHandler(db, reg),
		Auth:   authHandler.NewHandler(authSvc),
		Authenticated: []router.Handler{
			patientHandler.NewHandler(patientSvc, authMiddleware),
			appointmentHandler.NewHandler(workflow, appointmentSvc, authMiddleware),
			chatHandler.NewHandler(chatSvc, directory, authMiddleware),
			notificationHandler.NewHandler(patientSvc, logSvc, authMiddleware),
			reportHandler.NewHandler(reportSvc, authMiddleware),
		},
		Staff: []router.Handler{
			billingHandler.NewHandler(billingSvc),
		},
	}, router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		CORS:           cfg.CORS,
		MetricsPrefix:  "medicare_http",
		Registerer:     reg,
		ServiceName:    cfg.Tracing.ServiceName,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Queued notifications still need the database for their log rows.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("notification queue not fully drained")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server exited properly")
}
