package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hkarimi/telegpt/internal/ai"
	"github.com/hkarimi/telegpt/internal/bot"
	"github.com/hkarimi/telegpt/internal/config"
	"github.com/hkarimi/telegpt/internal/db"
	"github.com/hkarimi/telegpt/internal/httpapi"
	"github.com/hkarimi/telegpt/internal/session"
	"github.com/hkarimi/telegpt/internal/store/redisstore"
	"github.com/hkarimi/telegpt/internal/user"
)

func main() {
	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var provider ai.Provider
	switch strings.ToLower(cfg.AIProvider) {
	case "", "chat01", "openai":
		provider = ai.NewOpenAIProvider(cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.ChatModel, cfg.AITimeout)
	case "ollama":
		provider = ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.AITimeout)
	default:
		log.Fatalf("unsupported AI_PROVIDER=%q", cfg.AIProvider)
	}

	var state bot.StateStore = bot.NewMemoryState()
	if cfg.RedisAddr != "" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.AdminStateTTL)
		defer rds.Close()
		state = rds
	}

	users := user.NewService(user.NewRepo(gdb), cfg.DefaultDailyLimit)
	sessions := session.NewService(session.NewRepo(gdb))
	handler := bot.NewHandler(users, sessions, provider, state, cfg.AdminID)

	router := httpapi.NewRouter(handler, cfg.WebhookSecret)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("bot started, addr=%s provider=%s admin=%d", cfg.HTTPAddr, cfg.AIProvider, cfg.AdminID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
