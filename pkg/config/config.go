// Файл: pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// BackendConfig — внешний REST-бэкенд, которому мы передаём все CRUD-операции.
type BackendConfig struct {
	Provider string // remote | mock
	BaseURL  string
	Timeout  time.Duration
}

type PostgresConfig struct {
	DSN         string
	AutoMigrate bool
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	ReferenceTTL time.Duration
}

type JWTConfig struct {
	SecretKey string
}

const (
	ImportParallel   = "parallel"
	ImportSequential = "sequential"
)

type ImportConfig struct {
	Strategy    string
	Concurrency int
	MaxFileMB   int64
	UploadsDir  string
}

type LoggerConfig struct {
	Level string
	File  string
}

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Import   ImportConfig
	Logger   LoggerConfig
}

func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: .env файл не найден или не удалось его загрузить.")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Backend: BackendConfig{
			Provider: getEnv("BACKEND_PROVIDER", "remote"),
			BaseURL:  getEnv("BACKEND_BASE_URL", "http://localhost:5000/api/"),
			Timeout:  getEnvDuration("BACKEND_TIMEOUT", 20*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:         getEnv("DATABASE_URL", ""),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Address:      getEnv("REDIS_ADDRESS", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			ReferenceTTL: getEnvDuration("REFERENCE_CACHE_TTL", 10*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "change-me"),
		},
		Import: ImportConfig{
			Strategy:    getEnv("IMPORT_STRATEGY", ImportParallel),
			Concurrency: getEnvInt("IMPORT_CONCURRENCY", 4),
			MaxFileMB:   int64(getEnvInt("IMPORT_MAX_FILE_MB", 10)),
			UploadsDir:  getEnv("UPLOADS_DIR", "uploads"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	// base URL всегда со слэшем на конце: {base}{entity}
	if !strings.HasSuffix(cfg.Backend.BaseURL, "/") {
		cfg.Backend.BaseURL += "/"
	}
	if cfg.Import.Strategy != ImportSequential {
		cfg.Import.Strategy = ImportParallel
	}
	if cfg.Import.Concurrency < 1 {
		cfg.Import.Concurrency = 1
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
