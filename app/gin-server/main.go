package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/yoopersona/config"
	"github.com/yoockh/yoopersona/internal/api/handlers"
	"github.com/yoockh/yoopersona/internal/api/middleware"
	"github.com/yoockh/yoopersona/internal/api/routes"
	"github.com/yoockh/yoopersona/internal/gateway"
	"github.com/yoockh/yoopersona/internal/logger"
	"github.com/yoockh/yoopersona/internal/persona"
	"github.com/yoockh/yoopersona/internal/providers/stt"
	mongorepo "github.com/yoockh/yoopersona/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
	"github.com/yoockh/yoopersona/internal/services"
	"github.com/yoockh/yoopersona/internal/storage"
	"github.com/yoockh/yoopersona/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	l.Info("PostgreSQL connected")

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	l.Info("MongoDB connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("Redis connected")

	// Repositories
	interactions := pgrepo.NewInteractionRepo(config.PostgresDB)
	personas := pgrepo.NewPersonaRepo(config.PostgresDB)
	stories := pgrepo.NewStoryRepo(config.PostgresDB)
	providerConfigs := pgrepo.NewProviderConfigRepo(config.PostgresDB)
	events := mongorepo.NewEventRepo(config.MongoDatabase(), 0)

	// Provider configs are seeded once, then mutated only by operators.
	configSvc := services.NewProviderConfigService(providerConfigs)
	if err := configSvc.Seed(ctx); err != nil {
		log.Fatalf("provider config seed error: %v", err)
	}

	gw := gateway.New(configSvc, l)

	notifier := &services.StatusNotifier{
		Redis:  config.RedisClient,
		Events: events,
		Logger: l,
	}

	poller := &workers.StatusPoller{
		Interactions: interactions,
		Gateway:      gw,
		Events:       notifier,
		Logger:       l,
	}

	// Speech-to-text is optional; without GCP credentials, recorded prompts
	// simply go untranscribed.
	var transcriber stt.Provider
	if gs, err := stt.NewGoogleSpeech(ctx); err != nil {
		l.WithError(err).Warn("speech-to-text unavailable")
	} else {
		transcriber = gs
	}

	orch := &services.Orchestrator{
		Interactions: interactions,
		Personas:     personas,
		Context:      &persona.Builder{Personas: personas, Stories: stories, Logger: l},
		Gateway:      gw,
		Poller:       poller,
		STT:          transcriber,
		Events:       notifier,
		Logger:       l,
	}

	var uploader storage.Uploader
	if bucket := os.Getenv("VOICE_PREVIEW_BUCKET"); bucket != "" {
		u, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		uploader = u
	} else {
		l.Warn("VOICE_PREVIEW_BUCKET not set; voice previews disabled")
	}

	// Services + handlers
	interactionSvc := services.NewInteractionService(interactions, events, orch)
	personaSvc := services.NewPersonaService(personas, stories)
	voiceSvc := services.NewVoiceService(gw, uploader)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Interaction: handlers.NewInteractionHandler(interactionSvc),
		Persona:     handlers.NewPersonaHandler(personaSvc),
		Voice:       handlers.NewVoiceHandler(voiceSvc),
		Provider:    handlers.NewProviderHandler(configSvc),
		WS:          handlers.NewWSHandler(interactionSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
