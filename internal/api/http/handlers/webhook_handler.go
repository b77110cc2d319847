package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/api/dto"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/service"
)

// Envelope-level outcomes reported before the gateway runs.
const (
	statusIgnoredNoMessage   = "ignored_no_message"
	statusIgnoredNoHistoryID = "ignored_no_history_id"
)

// Gateway runs one push delivery through the ingestion pipeline.
type Gateway interface {
	Process(ctx context.Context, historyID string) service.Outcome
}

// WebhookHandler receives push deliveries for the watched mailbox.
// It returns HTTP 200 for every absorbed outcome so the broker never
// retries a delivery that deterministically fails.
type WebhookHandler struct {
	gateway Gateway
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWebhookHandler returns a new handler instance.
func NewWebhookHandler(gateway Gateway, metrics *observability.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, metrics: metrics, logger: logger}
}

// HandleEmail processes one push delivery.
func (h *WebhookHandler) HandleEmail(c *fiber.Ctx) error {
	var envelope dto.PushEnvelope
	if err := c.BodyParser(&envelope); err != nil {
		h.logger.Warn("unparseable push body", zap.Error(err))
		return h.respond(c, dto.IngestResponse{Status: service.StatusError})
	}

	if envelope.Message == nil {
		h.logger.Info("push delivery without message")
		return h.respond(c, dto.IngestResponse{Status: statusIgnoredNoMessage})
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(envelope.Message.Data)
	}
	if err != nil {
		h.logger.Warn("undecodable push data", zap.Error(err))
		return h.respond(c, dto.IngestResponse{Status: service.StatusError})
	}

	var data dto.PushData
	if err := json.Unmarshal(decoded, &data); err != nil {
		h.logger.Warn("unparseable push data", zap.Error(err))
		return h.respond(c, dto.IngestResponse{Status: service.StatusError})
	}

	historyID := data.HistoryID.String()
	if historyID == "" {
		h.logger.Info("push delivery without history id",
			zap.String("email_address", data.EmailAddress))
		return h.respond(c, dto.IngestResponse{Status: statusIgnoredNoHistoryID})
	}

	outcome := h.gateway.Process(c.UserContext(), historyID)
	return h.respond(c, dto.IngestResponse{Status: outcome.Status, TicketID: outcome.TicketID})
}

func (h *WebhookHandler) respond(c *fiber.Ctx, resp dto.IngestResponse) error {
	if h.metrics != nil {
		h.metrics.RecordIngestOutcome(resp.Status)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
