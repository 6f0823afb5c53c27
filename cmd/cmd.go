package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paeshift-backend/internal/config"
	"paeshift-backend/internal/handlers"
	"paeshift-backend/internal/middleware"
	"paeshift-backend/internal/repository"
	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Optional Redis geocode cache
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping Redis")
		}
		log.Info().Msg("Redis connection established")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret)
	jobService := services.NewJobService(jobRepo, appRepo, ratingRepo)
	matchingService := services.NewMatchingService(jobRepo, appRepo, cfg.Matching.MaxDistanceKm)
	geocoder := services.NewGeocoder(
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.APIKey,
		time.Duration(cfg.Geocoding.TimeoutSeconds)*time.Second,
		rdb,
		time.Duration(cfg.Geocoding.CacheTTLMinutes)*time.Minute,
	)

	var pusher services.ChatPusher
	if cfg.APNS.CertPath != "" {
		notifier, err := services.NewNotifier(cfg.APNS.CertPath, cfg.APNS.CertPassword, cfg.APNS.Topic, cfg.APNS.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push notifier")
		}
		pusher = notifier
		log.Info().Str("topic", cfg.APNS.Topic).Msg("Push notifications enabled")
	}

	hub := services.NewRoomHub()
	chatService := services.NewChatService(hub, chatRepo, appRepo, userRepo, pusher, cfg.Chat.Access)
	locationService := services.NewLocationService(hub, locationRepo, appRepo, geocoder)

	attachmentService, err := services.NewAttachmentService(
		attachmentRepo, jobRepo,
		cfg.AWS.Region, cfg.AWS.S3Bucket, cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create attachment service")
	}

	sweeper, err := services.NewSweeper(
		cfg.Retention.Cron,
		locationRepo,
		time.Duration(cfg.Retention.MaxAgeDays)*24*time.Hour,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create location sweeper")
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	jobHandler := handlers.NewJobHandler(jobService, matchingService)
	applicationHandler := handlers.NewApplicationHandler(jobService)
	chatHandler := handlers.NewChatHandler(chatService, jobService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
	chatWSHandler := handlers.NewChatWSHandler(hub, authService, jobService, chatService)
	locationWSHandler := handlers.NewLocationWSHandler(hub, authService, jobService, locationService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Put("/push-token", authHandler.UpdatePushToken)
			r.Post("/jobs", jobHandler.CreateJob)
			r.Get("/jobs", jobHandler.ListOpenJobs)
			r.Get("/jobs/{job_id}", jobHandler.GetJob)
			r.Get("/jobs/{job_id}/matches", jobHandler.GetMatches)
			r.Post("/jobs/{job_id}/start", jobHandler.StartJob)
			r.Post("/jobs/{job_id}/complete", jobHandler.CompleteJob)
			r.Post("/jobs/{job_id}/ratings", jobHandler.RateJob)
			r.Post("/jobs/{job_id}/applications", applicationHandler.Apply)
			r.Post("/applications/{application_id}/accept", applicationHandler.Accept)
			r.Get("/jobs/{job_id}/messages", chatHandler.History)
			r.Post("/jobs/{job_id}/attachments/upload", attachmentHandler.Upload)
			r.Get("/jobs/{job_id}/attachments", attachmentHandler.List)
			r.Put("/attachments/{attachment_id}", attachmentHandler.Confirm)
		})
	})

	// WebSocket routes
	r.Get("/ws/jobs/{job_id}/chat", chatWSHandler.Handle)
	r.Get("/ws/jobs/{job_id}/location", locationWSHandler.Handle)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
