package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/aula-go-api/internal/config"
	"github.com/noah-isme/aula-go-api/internal/database"
	"github.com/noah-isme/aula-go-api/internal/handler"
	"github.com/noah-isme/aula-go-api/internal/middleware"
	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/repository"
	"github.com/noah-isme/aula-go-api/internal/router"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/pkg/bigbluebutton"
	cloud "github.com/noah-isme/aula-go-api/pkg/cloudinary"
)

const streamKeepAliveTimeout = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Instance{}, &models.MeetingLog{}, &models.ScheduledEvent{}, &models.Notification{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSAddress, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	provider, err := bigbluebutton.New(bigbluebutton.Config{
		BaseURL:      cfg.ProviderURL,
		SharedSecret: cfg.ProviderSharedSecret,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create conferencing client: %v", err)
	}

	// Presentation storage is optional; without it uploads are rejected
	// but every other operation keeps working.
	var storage service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.PresentationFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	instanceRepo := repository.NewInstanceRepository(db)
	logRepo := repository.NewMeetingLogRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	eventLogService := service.NewEventLogService(logRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	instanceService := service.NewInstanceService(instanceRepo, scheduleRepo, eventLogService, notificationService, storage, validate, logger)
	meetingService := service.NewMeetingService(eventLogService, provider, redisClient, cfg.RecordingsCacheTTL, cfg.WaitPollInterval, cfg.LogoutURL, logger)
	completionService := service.NewCompletionService(eventLogService, logger)

	instanceHandler := handler.NewInstanceHandler(instanceService, logger)
	meetingHandler := handler.NewMeetingHandler(meetingService, instanceService, cfg.WaitPollInterval, logger)
	completionHandler := handler.NewCompletionHandler(completionService, instanceService, logger)
	logHandler := handler.NewLogHandler(eventLogService, instanceService, validate, logger)
	callbackHandler := handler.NewCallbackHandler(meetingService, instanceService, validate, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, streamKeepAliveTimeout)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		InstanceHandler:     instanceHandler,
		MeetingHandler:      meetingHandler,
		CompletionHandler:   completionHandler,
		LogHandler:          logHandler,
		CallbackHandler:     callbackHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
