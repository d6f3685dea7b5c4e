package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-post-scheduler/internal/apply"
	"ai-post-scheduler/internal/captions"
	"ai-post-scheduler/internal/config"
	"ai-post-scheduler/internal/database"
	"ai-post-scheduler/internal/llm"
	"ai-post-scheduler/internal/metrics"
	"ai-post-scheduler/internal/publish"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/schedule"
	"ai-post-scheduler/internal/storage"
	"ai-post-scheduler/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set for the bot")
	}
	if err := schedule.SetWindowOverrides(cfg.PostingWindows); err != nil {
		log.Fatalf("Invalid posting window configuration: %v", err)
	}

	ctx := context.Background()

	// 2. Initialize the record store
	var store records.Store
	var metricsStore *metrics.Store
	if cfg.DatabasePath != "" {
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		store = records.NewRepository(db.SQL)
		metricsStore = metrics.NewStore(db.SQL)
	} else {
		fileStore, err := storage.NewFileStore(cfg.RecordStorePath)
		if err != nil {
			log.Fatalf("Failed to initialize record store: %v", err)
		}
		store = fileStore
	}

	// 3. Optional collaborators
	var captioner *captions.Generator
	switch {
	case cfg.GeminiAPIKey != "":
		textGen, closer, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer closer.Close()
		captioner = captions.NewGenerator(textGen)
	case cfg.GroqAPIKey != "":
		captioner = captions.NewGenerator(llm.NewGroqClient(cfg))
	}

	var publisher publish.Client
	if cfg.PublishAPIURL != "" && cfg.PublishAdminKey != "" {
		publisher = publish.NewClient(cfg)
	}

	runner := apply.NewRunner(store, captioner, publisher)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, store, runner, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
