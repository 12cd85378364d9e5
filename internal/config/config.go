package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	// Chat store
	StoreDriver   string // sqlite | mysql | redis
	DBDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Change-event relay (disabled when RabbitURL is empty)
	RabbitURL      string
	RabbitExchange string

	// AI provider
	AIProvider    string // gemini | ollama | remote
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string
	ChatAPIURL    string

	// Simulated streaming playback
	StreamDelay time.Duration
}

func Load() Config {
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	storeDriver := os.Getenv("STORE_DRIVER")
	if storeDriver == "" {
		storeDriver = "sqlite"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "rgsai.db"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	rabbitExchange := os.Getenv("RABBIT_EXCHANGE")
	if rabbitExchange == "" {
		rabbitExchange = "rgsai.chat.events"
	}

	aiProvider := os.Getenv("AI_PROVIDER")
	if aiProvider == "" {
		aiProvider = "gemini"
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}

	ollamaBaseURL := os.Getenv("OLLAMA_BASE_URL")
	if ollamaBaseURL == "" {
		ollamaBaseURL = "http://localhost:11434"
	}

	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "llama3:latest"
	}

	chatAPIURL := os.Getenv("CHAT_API_URL")
	if chatAPIURL == "" {
		chatAPIURL = "http://localhost:8080"
	}

	streamDelay := 40 * time.Millisecond
	if v := os.Getenv("STREAM_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			streamDelay = time.Duration(n) * time.Millisecond
		}
	}

	return Config{
		HTTPAddr: httpAddr,

		StoreDriver:   storeDriver,
		DBDSN:         dsn,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: rabbitExchange,

		AIProvider:    aiProvider,
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   geminiModel,
		OllamaBaseURL: ollamaBaseURL,
		OllamaModel:   ollamaModel,
		ChatAPIURL:    chatAPIURL,

		StreamDelay: streamDelay,
	}
}
