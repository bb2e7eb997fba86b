package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekan-tools/github-wekan-sync/internal/events"
	"github.com/wekan-tools/github-wekan-sync/internal/models"
	"github.com/wekan-tools/github-wekan-sync/internal/signature"
)

type Handler struct {
	DB       *gorm.DB // optional delivery audit store, may be nil
	Verifier signature.Verifier
	Router   *events.Router
}

func (h *Handler) GithubWebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	// Verification runs over the raw body bytes, before any JSON
	// decoding touches them.
	if !h.Verifier.Verify(body, c.GetHeader("X-Hub-Signature-256")) {
		zap.L().Warn("Invalid webhook signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	eventType := c.GetHeader("X-GitHub-Event")

	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		zap.L().Warn("Webhook payload is not valid JSON", zap.String("event", eventType))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	resp := h.Router.Handle(c.Request.Context(), eventType, body)
	h.recordDelivery(eventType, resp)
	c.JSON(resp.Status, resp.Body)
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	body := gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().Format(time.RFC3339),
		"wekan_connected": !h.Router.Standalone(),
	}
	if h.Router.Standalone() {
		body["mode"] = "standalone"
	}
	c.JSON(http.StatusOK, body)
}

// recordDelivery writes one audit row for a processed delivery. Purely
// diagnostic; failures are logged and otherwise ignored.
func (h *Handler) recordDelivery(eventType string, resp events.Response) {
	if h.DB == nil {
		return
	}

	delivery := models.Delivery{
		Event:  eventType,
		Status: resp.Status,
	}
	if action, ok := resp.Body["action"].(string); ok {
		delivery.Action = action
	}
	if boardID, ok := resp.Body["board_id"].(string); ok {
		delivery.BoardID = boardID
	}
	if n, ok := resp.Body["cards_created"].(int); ok {
		delivery.CardsCreated = n
	}
	if errMsg, ok := resp.Body["error"].(string); ok {
		delivery.Error = errMsg
	}

	if result := h.DB.Create(&delivery); result.Error != nil {
		zap.L().Error("Failed to record delivery", zap.Error(result.Error))
	}
}
