package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"wa-webhook/internal/queue"
	"wa-webhook/internal/wa"
)

func registerSendReplyHandler(mux *asynq.ServeMux, waClient *wa.Client, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	mux.HandleFunc(queue.TypeSendReply, func(ctx context.Context, t *asynq.Task) error {
		var p queue.TaskSendReplyPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}

		if err := waClient.SendText(ctx, p.To, p.Body); err != nil {
			// The inbound webhook was acknowledged long ago; nothing to
			// propagate. MaxRetry(0) keeps this a single attempt.
			logger.Error("reply delivery failed", "to", p.To, "err", err)
			return err
		}

		logger.Info("reply sent", "to", p.To)
		return nil
	})
}
