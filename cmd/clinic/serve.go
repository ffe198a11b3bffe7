package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agastya-health/clinic-admin/internal/adapters/database"
	"github.com/agastya-health/clinic-admin/internal/adapters/search"
	"github.com/agastya-health/clinic-admin/internal/api/handlers"
	"github.com/agastya-health/clinic-admin/internal/api/middleware"
	"github.com/agastya-health/clinic-admin/internal/api/routes"
	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/typesense"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/notifications"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
	"github.com/agastya-health/clinic-admin/pkg/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	location, err := cfg.Clinic.Location()
	if err != nil {
		return err
	}

	pgClient, err := openDatabase(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	rds := openRedis(ctx, cfg)
	defer rds.Close()

	var searchRepo repositories.BlogSearchRepository
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Typesense client; blog search disabled")
		} else {
			if err := tsClient.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			searchRepo = search.NewTypesenseAdapter(tsClient)
		}
	}

	// Adapters
	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	patientRepo := database.NewPatientAdapter(pgClient)
	doctorRepo := database.NewDoctorAdapter(pgClient)
	slotRepo := database.NewDoctorSlotAdapter(pgClient)
	sequenceRepo := database.NewSequenceAdapter(pgClient)
	blogRepo := database.NewBlogAdapter(pgClient)

	// Services
	sweeper := services.NewExpirySweeper(appointmentRepo, rds.eventBus, metrics, location)
	appointmentService := services.NewAppointmentService(
		appointmentRepo,
		patientRepo,
		doctorRepo,
		slotRepo,
		sequenceRepo,
		sweeper,
		rds.eventBus,
		metrics,
	)
	slotService := services.NewSlotService(slotRepo, appointmentRepo)
	blogService := services.NewBlogService(blogRepo, searchRepo, sequenceRepo, rds.cache)

	if rds.eventBus != nil {
		notifier := newNotificationService(cfg, rds.eventBus)
		if err := notifier.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to start notification service")
		} else {
			defer notifier.Stop()
		}
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx, cfg.Clinic.SweepInterval)
	}()

	// Handlers
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, slotService, cfg.Clinic.Name)
	blogHandler := handlers.NewBlogHandler(blogService)

	var sseHandler *handlers.SSEHandler
	if rds.eventBus != nil {
		sseHandler = handlers.NewSSEHandler(rds.eventBus)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if rds.cache != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(rds.cache, metrics)
	}

	router := routes.NewRouter(
		appointmentHandler,
		blogHandler,
		sseHandler,
		cacheMiddleware,
		metrics,
		cfg.Server.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// SSE streams stay open; the handlers bound their own work.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info().Msg("Server shutting down")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Error during server shutdown")
	}

	<-sweepDone
	log.Info().Msg("Server stopped")
	return nil
}

// newNotificationService wires every configured channel. Unconfigured channels
// stay as nil interfaces.
func newNotificationService(cfg *config.Config, eventBus providers.EventBus) *services.NotificationService {
	var whatsapp, sms providers.MessageSender
	var email providers.EmailSender

	if cfg.Notifications.WhatsAppEnabled() {
		sender, err := notifications.NewWhatsAppCloudSender(&cfg.Notifications)
		if err != nil {
			log.Warn().Err(err).Msg("WhatsApp notifications disabled")
		} else {
			whatsapp = sender
		}
	}
	if cfg.Notifications.SMSEnabled() {
		sender, err := notifications.NewTwilioSMSSender(&cfg.Notifications)
		if err != nil {
			log.Warn().Err(err).Msg("SMS notifications disabled")
		} else {
			sms = sender
		}
	}
	if cfg.Notifications.EmailEnabled() {
		sender, err := notifications.NewSMTPEmailSender(&cfg.Notifications)
		if err != nil {
			log.Warn().Err(err).Msg("E-mail notifications disabled")
		} else {
			email = sender
		}
	}

	return services.NewNotificationService(eventBus, whatsapp, sms, email, cfg.Clinic.Name)
}
