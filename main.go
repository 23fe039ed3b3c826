package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/amruthadental/clinic-backend/database"
	"github.com/amruthadental/clinic-backend/internal/config"
	"github.com/amruthadental/clinic-backend/internal/handlers"
	"github.com/amruthadental/clinic-backend/internal/jobs"
	"github.com/amruthadental/clinic-backend/internal/middleware"
	"github.com/amruthadental/clinic-backend/internal/queue"
	"github.com/amruthadental/clinic-backend/internal/routes"
	"github.com/amruthadental/clinic-backend/internal/services"
	"github.com/amruthadental/clinic-backend/internal/storage"
	"github.com/amruthadental/clinic-backend/internal/telemetry"
)

const (
	serviceName = "clinic-backend"
	version     = "1.0.0"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found - checking environment variables")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(serviceName, cfg.OTELEndpoint, cfg.OTELInsecure)

	checks := map[string]handlers.Pinger{}

	// Initialize storage
	var store storage.Store
	if cfg.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Printf("📦 Connecting to %s database...", cfg.DBDialect)
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		dbStore := storage.NewDatabaseStore(db)
		log.Println("🔄 Running database migrations...")
		if err := dbStore.Migrate(); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")
		store = dbStore
	}
	checks["database"] = store

	// OTP entries live in Redis when available so every instance shares them
	var otpStore storage.OTPStore
	var otpSweeper jobs.OTPSweeper
	if client := config.NewRedisClient(cfg); client != nil {
		redisStore := storage.NewRedisOTPStore(client, "otp:")
		otpStore = redisStore
		checks["redis"] = redisStore
		defer client.Close()
		log.Printf("✅ OTP store: Redis at %s", cfg.RedisAddr)
	} else {
		if cfg.RedisAddr != "" {
			log.Printf("⚠️  Redis at %s unreachable, keeping OTPs in memory", cfg.RedisAddr)
		}
		memStore := storage.NewMemoryOTPStore()
		otpStore = memStore
		otpSweeper = memStore
	}

	// SMS channel
	var channel services.Channel = services.LogChannel{}
	if cfg.TwilioConfigured() {
		twilioService, err := services.NewTwilioService(services.TwilioConfig{
			AccountSID:        cfg.TwilioAccountSID,
			AuthToken:         cfg.TwilioAuthToken,
			From:              cfg.TwilioPhoneNumber,
			StatusCallbackURL: cfg.TwilioStatusURL,
		})
		if err != nil {
			log.Fatal("Failed to initialize Twilio service:", err)
		}
		channel = twilioService
		log.Println("✅ Twilio service initialized")
	} else {
		log.Println("⚠️  Twilio credentials not found - SMS will only be logged")
	}

	// Notification queue
	var q queue.Queue
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️  RabbitMQ unavailable (%v), using in-process queue", err)
		} else {
			q = rabbit
			log.Println("✅ Notification queue: RabbitMQ")
		}
	}
	if q == nil {
		q = queue.NewMemoryQueue(cfg.NotifyQueueSize)
	}

	notifier := services.NewNotifier(store, channel, q, services.NotifierConfig{
		Mode:        cfg.NotifyMode,
		MaxAttempts: cfg.NotifyMaxAttempts,
	})
	manager := services.NewAppointmentManager(store, notifier, services.ManagerConfig{
		ClinicName: cfg.ClinicName,
	})
	gate := services.NewOTPGate(otpStore, channel, services.OTPGateConfig{
		TTL:           cfg.OTPTTL,
		CountryPrefix: cfg.OTPCountryPrefix,
		BypassCode:    cfg.OTPBypassCode,
	})
	if cfg.OTPBypassCode != "" {
		log.Println("⚠️  OTP bypass code is enabled")
	}
	users, err := services.NewUserService(store, services.UserServiceConfig{
		CountryPrefix:   cfg.OTPCountryPrefix,
		AdminSecret:     cfg.AdminSecret,
		AdminSecretHash: cfg.AdminSecretHash,
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTTTL,
	})
	if err != nil {
		log.Fatal("Failed to initialize user service:", err)
	}

	// Initialize and start notification jobs
	notificationJob := jobs.NewNotificationJob(q, notifier, store, otpSweeper, jobs.NotificationJobConfig{
		SweepInterval: cfg.NotifySweepInterval,
		StaleAfter:    cfg.NotifyStaleAfter,
	})
	notificationJob.Start(ctx)

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Clinic Backend v" + version,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:request_id}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		OTP:          handlers.NewOTPHandler(gate),
		Users:        handlers.NewUserHandler(users),
		Appointments: handlers.NewAppointmentHandler(manager),
		Webhooks:     handlers.NewWebhookHandler(notifier),
		Health:       handlers.NewHealthHandler(serviceName, version, checks),
	}, routes.Options{
		JWTSecret:             cfg.JWTSecret,
		TwilioAuthToken:       cfg.TwilioAuthToken,
		TwilioStatusURL:       cfg.TwilioStatusURL,
		SkipWebhookValidation: cfg.Environment == "development" && cfg.TwilioAuthToken == "",
	})

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		log.Println("🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping notification jobs...")
		notificationJob.Stop()
		if err := q.Close(); err != nil {
			log.Printf("⚠️  Queue close: %v", err)
		}
		log.Println("⏹️  Shutting down server...")
		_ = app.ShutdownWithTimeout(10 * time.Second)

		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Clinic Backend starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", storageType(cfg))
	log.Printf("🌍 Environment: %s", cfg.Environment)
	log.Printf("📱 SMS: %s", smsStatus(cfg))
	log.Printf("📨 Notifications: %s", notifier.Mode())
	log.Println("========================================")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

func storageType(cfg config.Config) string {
	if cfg.UseMemoryStore {
		return "In-Memory (Testing)"
	}
	return cfg.DBDialect + " database"
}

func smsStatus(cfg config.Config) string {
	if !cfg.TwilioConfigured() {
		return "Not configured (log only)"
	}
	return "Twilio"
}
