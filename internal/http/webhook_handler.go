package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"wa-webhook/internal/signature"
	"wa-webhook/internal/types"
)

// ackBody is what Meta expects back on an accepted delivery.
const ackBody = "EVENT_RECEIVED"

type eventProcessor interface {
	Process(ctx context.Context, ev types.InboundEvent)
}

// WebhookHandler owns the GET verification handshake and the POST
// dispatch entry point.
type WebhookHandler struct {
	verifyToken string
	verifier    *signature.Verifier
	processor   eventProcessor
	logger      *slog.Logger
}

func NewWebhookHandler(verifyToken string, verifier *signature.Verifier, processor eventProcessor, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		verifier:    verifier,
		processor:   processor,
		logger:      logger,
	}
}

// HandleVerify answers the platform's subscription handshake: echo the
// challenge when mode and token match, 403 on mismatch, 400 when either
// parameter is missing.
func (h *WebhookHandler) HandleVerify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "" || token == "" {
		return c.NoContent(http.StatusBadRequest)
	}
	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("webhook verification failed", "mode", mode)
		return c.NoContent(http.StatusForbidden)
	}

	h.logger.Info("webhook verified")
	return c.String(http.StatusOK, challenge)
}

// HandleEvent verifies, classifies, and acknowledges one delivery. The
// 200 goes out as soon as classification succeeds; pipelines run on
// their own and their failures never reach this response.
func (h *WebhookHandler) HandleEvent(c echo.Context) error {
	deliveryID := uuid.NewString()
	logger := h.logger.With("delivery_id", deliveryID)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	// Signature covers the raw bytes exactly as received.
	if !h.verifier.Verify(body, c.Request().Header.Get("X-Hub-Signature-256")) {
		return c.NoContent(http.StatusUnauthorized)
	}

	var ev types.InboundEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Warn("malformed payload", "err", err)
		return c.NoContent(http.StatusBadRequest)
	}

	if ev.Object != types.ObjectWhatsApp {
		logger.Warn("unknown event source", "object", ev.Object)
		return c.NoContent(http.StatusNotFound)
	}

	logger.Info("delivery accepted", "entries", len(ev.Entry))
	h.processor.Process(c.Request().Context(), ev)

	return c.String(http.StatusOK, ackBody)
}
