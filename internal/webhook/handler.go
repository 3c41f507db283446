package webhook

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onchain-coinflip/coinflip/internal/logger"
)

const (
	EventFrameAdded            = "frame_added"
	EventFrameRemoved          = "frame_removed"
	EventNotificationsEnabled  = "notifications_enabled"
	EventNotificationsDisabled = "notifications_disabled"
)

const Path = "/api/webhook"

type Handler struct {
	logger *slog.Logger
}

func NewHandler() *Handler {
	return &Handler{logger: logger.Named("webhook")}
}

// Receive acknowledges a mini-app lifecycle notification. Only the event name
// is interpreted; the rest of the body is logged as received.
func (h *Handler) Receive(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.With("error", err).Error("failed to decode webhook body")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	event, _ := body["event"].(string)
	log := h.logger.With("event", event).With("body", body)

	switch event {
	case EventFrameAdded:
		log.Info("user added the mini app")
	case EventFrameRemoved:
		log.Info("user removed the mini app")
	case EventNotificationsEnabled:
		log.Info("user enabled notifications")
	case EventNotificationsDisabled:
		log.Info("user disabled notifications")
	default:
		log.Warn("unknown webhook event")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Coin Flip webhook endpoint",
	})
}

func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET(Path, h.Health)
	router.POST(Path, h.Receive)

	return router
}
