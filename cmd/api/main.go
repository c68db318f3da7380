// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/ai"
	"farmwise-api-server/internal/api/routes"
	"farmwise-api-server/internal/database"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"
	"farmwise-api-server/internal/socket"
	"farmwise-api-server/internal/storage"
	"farmwise-api-server/internal/upload"
	"farmwise-api-server/internal/weather"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load .env (optional) and configuration
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment and config.yaml")
	}
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. MongoDB is optional; without it the durable endpoints answer 503
	var repo repository.Repository
	mongoClient, db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Printf("MongoDB not available - some features will be disabled: %v", err)
	} else {
		defer mongoClient.Disconnect(context.Background())
		repo = repository.NewMongoRepository(db)
		if cfg.Demo.Seed {
			if err := database.SeedDemo(ctx, db); err != nil {
				log.Printf("Failed to seed demo data: %v", err)
			}
		}
	}

	// 3. Photo storage: S3 when a bucket is configured, local disk otherwise
	var (
		images storage.ImageStore
		local  *storage.LocalStore
	)
	if cfg.S3.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 store: %v", err)
		}
		images = s3Store
	} else {
		local, err = storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicPath)
		if err != nil {
			log.Fatalf("Failed to initialize local upload store: %v", err)
		}
		images = local
	}

	// 4. Upstream clients
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}
	weatherClient := weather.NewClient(httpClient, cfg.Weather)
	if !weatherClient.Configured() {
		log.Println("WEATHERAPI_KEY not configured - weather will be reported as unavailable")
	}

	openAI := ai.NewOpenAI(httpClient, cfg.OpenAI)
	var llm ai.Completer = openAI
	aiReady := openAI.Configured()
	if cfg.AI.Provider == "gemini" {
		gemini, err := ai.NewGemini(ctx, cfg.Gemini)
		if err != nil {
			log.Printf("Gemini not available, falling back to OpenAI: %v", err)
		} else {
			defer gemini.Close()
			llm = gemini
			aiReady = true
		}
	}
	if !aiReady {
		log.Println("No AI provider configured - AI features will answer 503")
	}

	var voiceTranscriber ai.Transcriber
	if openAI.Configured() {
		voiceTranscriber = openAI
	}

	advisor := ai.NewAdvisor(llm, cfg.AI)
	assistant := ai.NewAssistant(llm, cfg.AI)
	uploads := upload.NewService(images, assistant, cfg.Upload.MaxImageBytes)

	// 5. Session state, realtime push and write-through
	store := session.NewStore()
	hub := socket.NewHub()
	store.Subscribe(hub.Notify)
	if repo != nil {
		mirror := repository.NewMirror(repo, cfg.Mongo.Timeout)
		defer mirror.Close()
		store.Subscribe(mirror.Notify)
	}

	sweeper := session.NewSweeper(store, cfg.Session.SweepInterval, cfg.Session.MaxIdle)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start session sweeper: %v", err)
	}
	defer sweeper.Stop()

	// 6. Router
	router := routes.SetupRouter(routes.Dependencies{
		Cfg:              cfg,
		Repo:             repo,
		Store:            store,
		Hub:              hub,
		Weather:          weatherClient,
		Advisor:          advisor,
		Assistant:        assistant,
		Transcriber:      openAI,
		VoiceTranscriber: voiceTranscriber,
		Uploads:          uploads,
		Local:            local,
		AIReady:          aiReady,
		TranscribeOK:     openAI.Configured(),
	})

	// 7. Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Printf("Starting API server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
