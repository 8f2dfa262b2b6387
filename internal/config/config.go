package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// App
	AppEnv   string // development | production | staging
	HTTPAddr string // e.g. :8080
	LogLevel string // debug | info | warn | error

	// Redis (dedupe KV)
	RedisAddr     string
	RedisPassword string

	// Asynq (outbound reply queue)
	AsynqRedisAddr     string
	AsynqRedisPassword string
	AsynqRedisDB       int

	// WhatsApp Cloud API
	WAVerifyToken   string // GET /webhook subscription handshake
	WAAppSecret     string // X-Hub-Signature-256 verification
	WAAccessToken   string // bearer for media + send
	WAPhoneNumberID string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Dialogflow CX
	DFProjectID    string
	DFLocation     string
	DFAgentID      string
	DFSAEmail      string // service-account client email
	DFSAPrivateKey string // service-account private key, PEM
	DFLanguageCode string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AsynqRedisAddr:     getEnvFallback("ASYNQ_REDIS_ADDR", "REDIS_ADDR", "127.0.0.1:6379"),
		AsynqRedisPassword: getEnvFallback("ASYNQ_REDIS_PASSWORD", "REDIS_PASSWORD", ""),
		AsynqRedisDB:       getEnvInt("ASYNQ_REDIS_DB", 1),

		WAVerifyToken:   getEnv("WA_VERIFY_TOKEN", ""),
		WAAppSecret:     getEnv("WA_APP_SECRET", ""),
		WAAccessToken:   getEnv("WA_ACCESS_TOKEN", ""),
		WAPhoneNumberID: getEnv("WA_PHONE_NUMBER_ID", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		DFProjectID:    getEnv("DF_PROJECT_ID", ""),
		DFLocation:     getEnv("DF_LOCATION", "global"),
		DFAgentID:      getEnv("DF_AGENT_ID", ""),
		DFSAEmail:      getEnv("DF_SA_EMAIL", ""),
		DFSAPrivateKey: getEnv("DF_SA_PRIVATE_KEY", ""),
		DFLanguageCode: getEnv("DF_LANGUAGE_CODE", "en"),
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string

	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	if c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.AsynqRedisAddr == "" {
		missing = append(missing, "ASYNQ_REDIS_ADDR")
	}
	if c.WAVerifyToken == "" {
		missing = append(missing, "WA_VERIFY_TOKEN")
	}

	if c.IsProd() {
		if c.WAAppSecret == "" {
			missing = append(missing, "WA_APP_SECRET")
		}
		if c.WAAccessToken == "" {
			missing = append(missing, "WA_ACCESS_TOKEN")
		}
		if c.WAPhoneNumberID == "" {
			missing = append(missing, "WA_PHONE_NUMBER_ID")
		}
		if c.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
		if c.DFProjectID == "" {
			missing = append(missing, "DF_PROJECT_ID")
		}
		if c.DFAgentID == "" {
			missing = append(missing, "DF_AGENT_ID")
		}
		if c.DFSAEmail == "" {
			missing = append(missing, "DF_SA_EMAIL")
		}
		if c.DFSAPrivateKey == "" {
			missing = append(missing, "DF_SA_PRIVATE_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.AppEnv == "production"
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// --- helpers ---

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFallback(primary, fallback, def string) string {
	if v := os.Getenv(primary); v != "" {
		return v
	}
	if v := os.Getenv(fallback); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
