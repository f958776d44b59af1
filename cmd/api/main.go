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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/config"
	"github.com/promptpal/promptpal-api/internal/database"
	"github.com/promptpal/promptpal-api/internal/handler"
	"github.com/promptpal/promptpal-api/internal/middleware"
	"github.com/promptpal/promptpal-api/internal/models"
	"github.com/promptpal/promptpal-api/internal/queue"
	"github.com/promptpal/promptpal-api/internal/repository"
	"github.com/promptpal/promptpal-api/internal/router"
	"github.com/promptpal/promptpal-api/internal/scheduler"
	"github.com/promptpal/promptpal-api/internal/service"
	cloud "github.com/promptpal/promptpal-api/pkg/cloudinary"
	"github.com/promptpal/promptpal-api/pkg/judge"
	"github.com/promptpal/promptpal-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	location, err := cfg.Location()
	if err != nil {
		log.Fatalf("failed to resolve timezone: %v", err)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Task{},
		&models.Criterion{},
		&models.Subquestion{},
		&models.AppUser{},
		&models.Submission{},
		&models.TaskScore{},
		&models.UserStreak{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	criterionRepo := repository.NewCriterionRepository(db)
	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	taskScoreRepo := repository.NewTaskScoreRepository(db)
	streakRepo := repository.NewStreakRepository(db)

	aiJudge, err := judge.NewOpenAIJudge(judge.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.JudgeModel,
		VisionModel: cfg.JudgeVisionModel,
		MaxTokens:   cfg.JudgeMaxTokens,
		Temperature: cfg.JudgeTemperature,
		Timeout:     cfg.JudgeTimeout,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to create judge client: %v", err)
	}

	var sender mailer.Mailer
	if cfg.SMTPHost != "" {
		sender, err = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
		if err != nil {
			log.Fatalf("failed to create mailer: %v", err)
		}
	} else {
		sender = mailer.NewLogMailer(logger)
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("image uploads disabled, cloudinary not configured")
	}

	// The inline dispatcher binds to the pipeline after construction; the
	// NATS dispatcher publishes and a queue worker consumes.
	var process queue.Handler
	var dispatcher queue.Dispatcher
	var natsConn *nats.Conn

	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		dispatcher = queue.NewNATSDispatcher(natsConn, logger)
	} else {
		dispatcher = queue.NewInlineDispatcher(func(ctx context.Context, submissionID uint) {
			process(ctx, submissionID)
		})
	}

	rubricService := service.NewRubricService(criterionRepo, logger)
	streakService := service.NewStreakService(streakRepo, taskScoreRepo, location, logger)
	resultService := service.NewUserResultService(taskRepo, submissionRepo, userRepo, location, logger)
	statsService := service.NewStatsService(taskScoreRepo, submissionRepo, redisClient, cfg.StatsCacheTTL, logger)
	taskService := service.NewTaskService(taskRepo, location, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	digestService := service.NewDigestService(userRepo, taskRepo, resultService, streakService, sender, location, service.DigestConfig{
		Pause:       cfg.NotificationPause,
		FrontendURL: cfg.FrontendURL,
	}, logger)

	var fileUploader service.FileUploader
	if uploader != nil {
		fileUploader = uploader
	}

	submissionService := service.NewSubmissionService(service.SubmissionDeps{
		Submissions: submissionRepo,
		Tasks:       taskRepo,
		Users:       userRepo,
		TaskScores:  taskScoreRepo,
		Rubric:      rubricService,
		Judge:       aiJudge,
		Dispatcher:  dispatcher,
		Streaks:     streakService,
		Results:     resultService,
		Uploader:    fileUploader,
		Validator:   validate,
		Logger:      logger,
		Config:      service.SubmissionConfig{MinSolutionLength: cfg.MinSolutionLength},
	})
	process = submissionService.Process

	if natsConn != nil {
		unsubscribe, err := queue.Subscribe(natsConn, submissionService.Process, logger)
		if err != nil {
			log.Fatalf("failed to start judge worker: %v", err)
		}
		defer unsubscribe()
	}

	jobs, err := scheduler.New(scheduler.Config{
		DigestCron:      cfg.DigestCron,
		StreakSweepCron: cfg.StreakSweepCron,
	}, streakService, digestService, location, logger)
	if err != nil {
		log.Fatalf("failed to schedule background jobs: %v", err)
	}
	jobs.Start()
	defer jobs.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TaskHandler:       handler.NewTaskHandler(taskService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		StreakHandler:     handler.NewStreakHandler(streakService, cfg.LeaderboardDefault, logger),
		ResultHandler:     handler.NewResultHandler(resultService, digestService, logger),
		StatsHandler:      handler.NewStatsHandler(statsService, logger),
		CriteriaHandler:   handler.NewCriteriaHandler(rubricService, logger),
		UserHandler:       handler.NewUserHandler(userService, logger),
		AdminHandler:      handler.NewAdminHandler(streakService, digestService, statsService, dispatcher, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		SubmitRateLimit:   middleware.RateLimit("submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
