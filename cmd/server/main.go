package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"snapstage-backend/internal/config"
	"snapstage-backend/internal/database"
	"snapstage-backend/internal/email"
	"snapstage-backend/internal/handlers"
	"snapstage-backend/internal/imaging"
	"snapstage-backend/internal/logger"
	"snapstage-backend/internal/middleware"
	"snapstage-backend/internal/replicate"
	"snapstage-backend/internal/staging"
	"snapstage-backend/internal/storage"
)

func main() {
	// Optional in production; real env vars win over .env entries.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbClient, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbClient.Close()

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize migrator")
	}
	if err := migrator.Run(); err != nil {
		migrator.Close()
		log.Fatal().Err(err).Msg("migration failed")
	}
	migrator.Close()
	log.Info().Msg("migrations completed")

	storageClient, err := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage client")
	}

	replicateClient := replicate.NewClient(cfg.ReplicateBaseURL, cfg.ReplicateAPIToken)

	processor, err := imaging.NewProcessor()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize image processor")
	}

	mailer := email.NewClient(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL)

	reconciler := staging.NewReconciler(dbClient, replicateClient, storageClient, processor, mailer, log)
	service := staging.NewService(dbClient, dbClient, dbClient, replicateClient, storageClient, reconciler, log)

	sweeper := staging.NewSweeper(dbClient, dbClient, log)
	sweeper.Start()
	defer sweeper.Stop()

	stagingHandler := handlers.NewStagingHandler(service, log)
	projectsHandler := handlers.NewProjectsHandler(dbClient)
	creditsHandler := handlers.NewCreditsHandler(dbClient)
	webhookHandler := handlers.NewWebhookHandler(cfg, dbClient, log)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handlers.HealthHandler)

	// Webhook sits outside auth; it carries its own shared secret.
	router.POST("/api/v1/webhooks/credits", webhookHandler.HandleCreditsWebhook)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.POST("/staging/preview", stagingHandler.RequestPreview)
	api.GET("/staging/request/:request_id", stagingHandler.GetRequest)
	api.POST("/staging/regenerate/:request_id", stagingHandler.Regenerate)
	api.POST("/staging/approve/:request_id", stagingHandler.Approve)
	api.POST("/staging/generate-hd/:request_id", stagingHandler.GenerateHd)
	api.GET("/staging/request/:request_id/download-hd", stagingHandler.DownloadHd)

	api.POST("/projects", projectsHandler.CreateProject)
	api.GET("/projects", projectsHandler.ListProjects)
	api.GET("/projects/:project_id", projectsHandler.GetProject)

	api.GET("/credits", creditsHandler.GetCredits)
	api.GET("/credits/transactions", creditsHandler.ListTransactions)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
