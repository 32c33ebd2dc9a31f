package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/logger"
	"github.com/rs/zerolog"
)

// Handlers - 라우터에 등록할 핸들러 묶음
// Twilio, Vapi 중 설정되지 않은 통신사 핸들러는 nil (라우트 미등록)
type Handlers struct {
	Sentry   *SentryHandler
	Twilio   *TwilioHandler
	Vapi     *VapiHandler
	Calls    *CallsHandler
	Webhooks *WebhookHandler
	Metrics  http.Handler
}

// NewRouter - gin 라우터 생성 및 전체 라우트 등록
func NewRouter(h Handlers, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	// 건강 체크 및 기본 엔드포인트
	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/health", Health)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	webhook := router.Group("/webhook")
	webhook.POST("/sentry", h.Sentry.Webhook)
	webhook.GET("/sentry", h.Sentry.Status)

	if h.Twilio != nil {
		twilio := router.Group("/twilio")
		twilio.POST("/voice", h.Twilio.Voice)
		twilio.POST("/gather", h.Twilio.Gather)
		twilio.POST("/status", h.Twilio.Status)
		twilio.POST("/escalate", h.Twilio.Escalate)
	}
	if h.Vapi != nil {
		router.POST("/vapi/webhook", h.Vapi.Webhook)
	}

	api := router.Group("/api/v1")
	api.GET("/calls", h.Calls.ListCalls)
	api.GET("/calls/:id", h.Calls.GetCall)
	api.GET("/frequencies", h.Calls.ListFrequencies)
	if h.Webhooks != nil {
		api.GET("/webhooks", h.Webhooks.ListWebhooks)
	}

	return router
}

// detached - 요청 값은 유지하고 취소는 끊은 컨텍스트
// 진단 실행과 발신은 웹훅 송신자가 연결을 끊어도 끝까지 진행됨
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
