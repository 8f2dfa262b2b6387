package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("ASYNQ_REDIS_DB", "")
	t.Setenv("WA_VERIFY_TOKEN", "verify-me")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("unexpected env: %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr: %q", cfg.HTTPAddr)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Fatalf("unexpected model: %q", cfg.GeminiModel)
	}
	if cfg.AsynqRedisDB != 1 {
		t.Fatalf("unexpected asynq db: %d", cfg.AsynqRedisDB)
	}
}

func TestAsynqRedisFallback(t *testing.T) {
	t.Setenv("WA_VERIFY_TOKEN", "verify-me")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("ASYNQ_REDIS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AsynqRedisAddr != "redis.internal:6379" {
		t.Fatalf("asynq addr should fall back to REDIS_ADDR, got %q", cfg.AsynqRedisAddr)
	}
}

func TestValidateProdRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WA_VERIFY_TOKEN", "verify-me")
	t.Setenv("WA_APP_SECRET", "")
	t.Setenv("WA_ACCESS_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DF_PROJECT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected missing-env error in production")
	}
	for _, key := range []string{"WA_APP_SECRET", "WA_ACCESS_TOKEN", "GEMINI_API_KEY", "DF_PROJECT_ID"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error should name %s: %v", key, err)
		}
	}
}

func TestVerifyTokenAlwaysRequired(t *testing.T) {
	t.Setenv("WA_VERIFY_TOKEN", "")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "WA_VERIFY_TOKEN") {
		t.Fatalf("expected WA_VERIFY_TOKEN to be required, got %v", err)
	}
}
