package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP listener for the webhook transport.
	HTTPAddr      string
	WebhookSecret string

	// DB_DSN may be a sqlite path or a mysql DSN
	// (app:apppass@tcp(127.0.0.1:3306)/telegpt?charset=utf8mb4&parseTime=true&loc=Local).
	DBDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AdminID is the platform user id allowed to run admin commands.
	AdminID int64
	// DefaultDailyLimit is assigned on first contact; -1 means unlimited.
	DefaultDailyLimit int
	// AdminStateTTL bounds how long a pending set-limit prompt stays valid.
	AdminStateTTL time.Duration

	// AI provider
	AIProvider  string
	AITimeout   time.Duration
	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string

	OllamaBaseURL string
	OllamaModel   string
}

func Load() Config {
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "telegpt.db"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	var adminID int64
	if v := os.Getenv("BOT_ADMIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			adminID = n
		}
	}

	defaultLimit := -1
	if v := os.Getenv("DEFAULT_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			defaultLimit = n
		}
	}

	stateTTL := 10 * time.Minute
	if v := os.Getenv("ADMIN_STATE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			stateTTL = time.Duration(n) * time.Second
		}
	}

	aiProvider := os.Getenv("AI_PROVIDER")
	if aiProvider == "" {
		aiProvider = "chat01"
	}

	aiTimeout := 120 * time.Second
	if v := os.Getenv("AI_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			aiTimeout = time.Duration(n) * time.Second
		}
	}

	chatBaseURL := os.Getenv("CHAT_API_BASE_URL")
	if chatBaseURL == "" {
		chatBaseURL = "https://chat01.ai/v1"
	}
	chatModel := os.Getenv("CHAT_API_MODEL")
	if chatModel == "" {
		chatModel = "gpt-4o"
	}

	ollamaBaseURL := os.Getenv("OLLAMA_BASE_URL")
	if ollamaBaseURL == "" {
		ollamaBaseURL = "http://localhost:11434"
	}
	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "llama3:latest"
	}

	return Config{
		HTTPAddr:      httpAddr,
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		DBDSN: dsn,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		AdminID:           adminID,
		DefaultDailyLimit: defaultLimit,
		AdminStateTTL:     stateTTL,

		AIProvider:  aiProvider,
		AITimeout:   aiTimeout,
		ChatBaseURL: chatBaseURL,
		ChatAPIKey:  os.Getenv("CHAT_API_KEY"),
		ChatModel:   chatModel,

		OllamaBaseURL: ollamaBaseURL,
		OllamaModel:   ollamaModel,
	}
}
