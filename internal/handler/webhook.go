package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/service"
)

type WebhookHandler struct {
	delivery *service.WebhookDeliveryService
}

func NewWebhookHandler(delivery *service.WebhookDeliveryService) *WebhookHandler {
	return &WebhookHandler{delivery: delivery}
}

// ListWebhooks godoc
// @Summary List outgoing notification webhooks
// @Description Header values and body templates are not exposed.
// @Tags webhooks
// @Produce json
// @Success 200 {object} model.WebhookConfigListResponse
// @Router /api/v1/webhooks [get]
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	configs := []model.WebhookConfig{}
	if h.delivery != nil {
		configs = append(configs, h.delivery.Configs()...)
	}
	c.JSON(http.StatusOK, model.WebhookConfigListResponse{
		Status: "success",
		Data:   configs,
	})
}
