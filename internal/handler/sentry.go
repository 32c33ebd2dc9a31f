// Sentry 웹훅 요청을 처리하는 핸들러
//
// 요청 흐름:
//  1. Sentry가 POST /webhook/sentry로 issue 이벤트 전송
//  2. JSON 페이로드를 SentryWebhook 구조체로 파싱
//  3. service 레이어(IncidentService)에서 진단 → 라우팅 → 발신
//
// 응답은 항상 200 (status 필드로 결과 구분), Sentry 재전송을 막기 위함

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/service"
	"github.com/rs/zerolog"
)

// Sentry 핸들러 구조체 정의
type SentryHandler struct {
	incidents *service.IncidentService
	log       zerolog.Logger
}

// Sentry 핸들러 객체 생성
func NewSentryHandler(incidents *service.IncidentService, log zerolog.Logger) *SentryHandler {
	return &SentryHandler{
		incidents: incidents,
		log:       log.With().Str("component", "sentry_handler").Logger(),
	}
}

// Webhook godoc
// @Summary Receive Sentry issue webhook
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} model.IncidentWebhookResponse
// @Router /webhook/sentry [post]
func (h *SentryHandler) Webhook(c *gin.Context) {
	var payload model.SentryWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Warn().Err(err).Msg("Failed to parse Sentry webhook")
		c.JSON(http.StatusOK, model.IncidentWebhookResponse{Status: "error", Error: "invalid payload"})
		return
	}

	resp := h.incidents.HandleSentry(detached(c), payload)
	c.JSON(http.StatusOK, resp)
}

// Status - 웹훅 엔드포인트 확인용
func (h *SentryHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "Sentry webhook endpoint is active",
	})
}
