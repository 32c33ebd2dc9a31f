package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/model"
)

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "oncall-agent is running",
	})
}

// Health - 프로세스 상태 (의존 서비스 확인 없음)
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "ok",
		Service:   "oncall-agent",
		Timestamp: time.Now().UTC(),
	})
}
