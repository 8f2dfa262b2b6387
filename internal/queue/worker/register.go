package worker

import (
	"log/slog"

	"github.com/hibiken/asynq"

	"wa-webhook/internal/wa"
)

// RegisterHandlers binds all task handlers to the asynq mux.
func RegisterHandlers(mux *asynq.ServeMux, waClient *wa.Client, logger *slog.Logger) {
	registerSendReplyHandler(mux, waClient, logger)
}
