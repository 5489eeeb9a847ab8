package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wellness-companion/internal/backend"
	"wellness-companion/internal/chat"
	"wellness-companion/internal/checkin"
	"wellness-companion/internal/config"
	"wellness-companion/internal/database"
	"wellness-companion/internal/orchestrator"
	"wellness-companion/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize the SQLite database
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	chatRepo := chat.NewRepository(db.SQL)
	history := checkin.NewHistory(db.SQL)

	// 3. Initialize the backend client and core services
	client := backend.NewClient(cfg)
	orch := orchestrator.New(client)

	sched := checkin.NewScheduler(nil)
	defer sched.Stop()

	// Restore the running score and answered count from persisted history.
	if score, ok, err := history.LastScore(context.Background()); err != nil {
		log.Printf("Warning: failed to restore burnout score: %v", err)
	} else if ok {
		sched.RestoreScore(score)
		log.Printf("Restored burnout score: %.0f/100", score)
	}
	if n, err := history.CompletedCount(context.Background()); err != nil {
		log.Printf("Warning: failed to restore check-in count: %v", err)
	} else if n > 0 {
		sched.RestoreCompleted(n)
	}

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, client, orch, sched, history, chatRepo)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}
	sched.SetOnWake(bot.OnCooldownExpired)
	bot.RegisterHandlers()
	bot.Start()
	defer bot.Stop()

	// 5. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Wellness Companion Bot listening on port %s", port)
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
