package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"wa-webhook/internal/agent"
	"wa-webhook/internal/config"
	"wa-webhook/internal/genai"
	httpserver "wa-webhook/internal/http"
	"wa-webhook/internal/processor"
	"wa-webhook/internal/queue"
	"wa-webhook/internal/queue/worker"
	"wa-webhook/internal/signature"
	"wa-webhook/internal/store"
	"wa-webhook/internal/wa"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Redis (dedupe KV)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	kv := store.NewRedisStore(rdb)

	// Asynq (outbound reply queue)
	asynqOpt := asynq.RedisClientOpt{
		Addr:     cfg.AsynqRedisAddr,
		Password: cfg.AsynqRedisPassword,
		DB:       cfg.AsynqRedisDB,
	}
	asynqClient := asynq.NewClient(asynqOpt)
	defer asynqClient.Close()

	// Collaborator clients
	waClient := wa.NewClient(cfg.WAAccessToken, cfg.WAPhoneNumberID)
	genaiClient := genai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	agentClient, err := agent.NewClient(agent.Config{
		ProjectID:    cfg.DFProjectID,
		Location:     cfg.DFLocation,
		AgentID:      cfg.DFAgentID,
		SAEmail:      cfg.DFSAEmail,
		SAPrivateKey: cfg.DFSAPrivateKey,
		LanguageCode: cfg.DFLanguageCode,
	})
	if err != nil {
		log.Fatalf("agent client: %v", err)
	}

	// Worker (consumer) delivering queued replies
	srv := asynq.NewServer(asynqOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue.QueueDefault: 10,
		},
	})
	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, waClient, logger)

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("asynq server error: %v", err)
		}
	}()

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	proc := processor.NewMessageProcessor(
		waClient,
		genaiClient,
		agentClient,
		queue.NewEnqueueingSender(asynqClient),
		kv,
		logger,
	)
	verifier := signature.NewVerifier(cfg.WAAppSecret, logger)
	webhook := httpserver.NewWebhookHandler(cfg.WAVerifyToken, verifier, proc, logger)
	e.GET("/webhook", webhook.HandleVerify)
	e.POST("/webhook", webhook.HandleEvent)

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("http listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
	if err := e.StartServer(s); err != nil {
		log.Fatal(err)
	}
}
