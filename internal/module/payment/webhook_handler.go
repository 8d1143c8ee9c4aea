package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/server/internal/shared/response"
)

// notificationBody is the gateway's webhook payload. Only the event type and
// the transaction id are read; everything else is re-fetched from the
// gateway before any state changes.
type notificationBody struct {
	Type string `json:"type"`
	Data struct {
		ID any `json:"id"` // the gateway sends string or number depending on topic
	} `json:"data"`
}

// WebhookHandler receives gateway notifications.
type WebhookHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service *Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

// RegisterRoutes registers webhook routes. No auth middleware: the handler
// trusts nothing in the payload, so a forged notification can at worst
// trigger a harmless re-fetch.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/mercadopago", h.HandleNotification)
}

// HandleNotification acks with 200 for every parseable notification,
// including ones the service classifies as replays or anomalies. A non-2xx
// answer makes the gateway redeliver, and redelivering a notification we
// already understood fixes nothing.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.BadRequest(c, "UNREADABLE_BODY", "unreadable body")
		return
	}

	var notif notificationBody
	if err := json.Unmarshal(body, &notif); err != nil {
		response.BadRequest(c, "MALFORMED_NOTIFICATION", "malformed notification")
		return
	}

	transactionID := notificationTransactionID(notif)

	event := &WebhookEvent{
		ID:            uuid.New(),
		EventType:     notif.Type,
		TransactionID: transactionID,
		Body:          string(body),
	}
	if err := h.service.repo.CreateWebhookEvent(c.Request.Context(), event); err != nil {
		h.logger.Warn("failed to persist webhook event", zap.Error(err))
	}

	if notif.Type != "payment" || transactionID == "" {
		h.markEvent(c.Request.Context(), event.ID, OutcomeIgnored, nil)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	result, err := h.service.HandleNotification(c.Request.Context(), transactionID)
	if err != nil {
		// Transient failure (gateway unreachable, db down). Not acking makes
		// the gateway retry, which is exactly what a transient failure needs.
		h.markEvent(c.Request.Context(), event.ID, "", err)
		h.logger.Error("webhook reconciliation failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		response.Internal(c, "RECONCILIATION_FAILED", "reconciliation failed")
		return
	}

	h.markEvent(c.Request.Context(), event.ID, result.Outcome, nil)
	c.JSON(http.StatusOK, gin.H{"status": string(result.Outcome)})
}

func (h *WebhookHandler) markEvent(ctx context.Context, id uuid.UUID, outcome ReconcileOutcome, procErr error) {
	if err := h.service.repo.MarkWebhookEventProcessed(ctx, id, string(outcome), procErr); err != nil {
		h.logger.Warn("failed to mark webhook event", zap.Error(err))
	}
}

// notificationTransactionID normalizes the data.id field, which arrives as a
// JSON string or number depending on the notification topic.
func notificationTransactionID(notif notificationBody) string {
	switch v := notif.Data.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
