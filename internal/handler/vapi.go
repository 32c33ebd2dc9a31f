// Vapi 음성 어시스턴트 웹훅 핸들러 (POST /vapi/webhook)
//
// 이벤트 종류:
//   - status-update: queued/ringing/in-progress 상태 반영 (ended는 end-of-call-report에서 처리)
//   - function-call: acknowledge_incident, escalate_to_backup, get_more_details
//   - transcript: 로그만 남김
//   - end-of-call-report: 종료 정보 기록 + 응답 없던 통화 자동 에스컬레이션
//
// 모든 이벤트에 200으로 응답

package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/client"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/service"
	"github.com/kube-rca/oncall-agent/internal/template"
	"github.com/rs/zerolog"
)

// 함수 이름 → 의사, 함수 인자 이름
var assistantIntents = map[string]struct {
	intent service.Intent
	param  string
}{
	client.FuncAcknowledge: {service.IntentAcknowledge, "note"},
	client.FuncEscalate:    {service.IntentEscalate, "reason"},
	client.FuncMoreDetails: {service.IntentDetails, "aspect"},
}

// Vapi 핸들러 구조체 정의
type VapiHandler struct {
	escalation *service.EscalationService
	log        zerolog.Logger
}

// Vapi 핸들러 객체 생성
func NewVapiHandler(escalation *service.EscalationService, log zerolog.Logger) *VapiHandler {
	return &VapiHandler{
		escalation: escalation,
		log:        log.With().Str("component", "vapi_handler").Logger(),
	}
}

func (h *VapiHandler) Webhook(c *gin.Context) {
	var payload model.VapiWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Warn().Err(err).Msg("Failed to parse Vapi webhook")
		c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
		return
	}
	msg := payload.Message

	if msg.Call == nil || msg.Call.ID == "" {
		h.log.Debug().Str("type", msg.Type).Msg("No call id in Vapi payload")
		c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
		return
	}
	callID := msg.Call.ID
	log := h.log.With().Str("provider_call_id", callID).Str("type", msg.Type).Logger()
	ctx := detached(c)

	switch msg.Type {
	case "status-update":
		if msg.Call.Status == "ended" {
			break
		}
		h.escalation.StatusUpdate(ctx, callID, msg.Call.Status)

	case "function-call":
		if msg.FunctionCall == nil {
			c.JSON(http.StatusOK, model.VapiFunctionResult{Result: "No function call data"})
			return
		}
		c.JSON(http.StatusOK, model.VapiFunctionResult{Result: h.functionCall(c, callID, msg.FunctionCall.Name, msg.FunctionCall.Parameters)})
		return

	case "transcript":
		if msg.Transcript != "" {
			log.Debug().Str("transcript", msg.Transcript).Msg("Transcript update")
		}

	case "end-of-call-report":
		endedReason := msg.Call.EndedReason
		if endedReason == "" {
			endedReason = msg.EndedReason
		}
		transcript := ""
		if msg.Artifact != nil {
			transcript = msg.Artifact.Transcript
		}
		if _, err := h.escalation.EndOfCall(ctx, callID, endedReason, transcript); err != nil {
			log.Error().Err(err).Msg("Failed to handle end of call")
		}

	default:
		log.Debug().Msg("Unhandled Vapi event type")
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
}

// functionCall - 어시스턴트가 엔지니어에게 읽어줄 결과 문장 생성
func (h *VapiHandler) functionCall(c *gin.Context, callID, name string, params map[string]any) string {
	fn, ok := assistantIntents[name]
	if !ok {
		return fmt.Sprintf("Unknown function: %s", name)
	}

	recordID, found := h.escalation.RecordForProvider(callID, "function-call")
	if !found {
		return "Call record not found"
	}

	arg, _ := params[fn.param].(string)
	res, err := h.escalation.HandleIntent(detached(c), recordID, fn.intent, arg)
	if err != nil {
		h.log.Error().Err(err).Str("record_id", recordID).Str("function", name).Msg("Failed to handle function call")
		return "I don't have additional details available."
	}

	switch res.Outcome {
	case service.OutcomeAcknowledged:
		return template.AcknowledgedReply(res.Record.Engineer.Name)
	case service.OutcomeEscalated:
		return template.EscalatedReply(res.Backup.Name)
	case service.OutcomeNoBackup:
		return template.NoBackupReply
	case service.OutcomeDetails, service.OutcomeRepeat:
		return template.Details(res.Decision, arg)
	default:
		return template.CallClosedText
	}
}
