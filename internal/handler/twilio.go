// Twilio 키패드(DTMF) 통화 핸들러
//
// 엔드포인트:
//   - POST /twilio/voice?recordId=    통화 연결, 경보 스크립트 + <Gather>
//   - POST /twilio/gather?recordId=   키 입력 (1: acknowledge, 2: escalate, 9: repeat)
//   - POST /twilio/status             상태 콜백 (CallSid 기준)
//   - POST /twilio/escalate?recordId= 입력 대기 시간 초과
//
// recordId가 없으면 400, 모르는 recordId면 404

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/client"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/service"
	"github.com/kube-rca/oncall-agent/internal/store"
	"github.com/kube-rca/oncall-agent/internal/template"
	"github.com/rs/zerolog"
)

// 키패드 입력 → 의사
var keypadIntents = map[string]service.Intent{
	"1": service.IntentAcknowledge,
	"2": service.IntentEscalate,
	"9": service.IntentRepeat,
}

// Twilio 핸들러 구조체 정의
type TwilioHandler struct {
	escalation *service.EscalationService
	twiml      *client.TwiML
	log        zerolog.Logger
}

// Twilio 핸들러 객체 생성
func NewTwilioHandler(escalation *service.EscalationService, twiml *client.TwiML, log zerolog.Logger) *TwilioHandler {
	return &TwilioHandler{
		escalation: escalation,
		twiml:      twiml,
		log:        log.With().Str("component", "twilio_handler").Logger(),
	}
}

// Voice - 통화 연결 시 TwiML
func (h *TwilioHandler) Voice(c *gin.Context) {
	recordID, ok := requireRecordID(c)
	if !ok {
		return
	}

	rec, err := h.escalation.Answered(recordID)
	if err != nil {
		h.recordError(c, recordID, err)
		return
	}
	if rec.Status.Terminal() {
		h.respond(c, recordID)(h.twiml.Hangup(template.CallClosedText))
		return
	}

	res, err := h.escalation.HandleIntent(detached(c), recordID, service.IntentRepeat, "")
	if err != nil {
		h.recordError(c, recordID, err)
		return
	}
	h.respond(c, recordID)(h.twiml.Alert(res.Decision, recordID))
}

// Gather - 키 입력 처리
func (h *TwilioHandler) Gather(c *gin.Context) {
	recordID, ok := requireRecordID(c)
	if !ok {
		return
	}

	var form model.TwilioGather
	_ = c.ShouldBind(&form)

	intent, known := keypadIntents[form.Digits]
	if !known {
		h.log.Info().Str("record_id", recordID).Str("digits", form.Digits).Msg("Invalid keypad input")
		h.respond(c, recordID)(h.twiml.InvalidInput(recordID))
		return
	}

	res, err := h.escalation.HandleIntent(detached(c), recordID, intent, "")
	if err != nil {
		h.recordError(c, recordID, err)
		return
	}
	h.respond(c, recordID)(h.intentTwiML(res, recordID))
}

// Status - 상태 콜백, 항상 200 OK
func (h *TwilioHandler) Status(c *gin.Context) {
	var form model.TwilioStatusCallback
	_ = c.ShouldBind(&form)

	h.log.Debug().Str("provider_call_id", form.CallSid).Str("status", form.CallStatus).Msg("Twilio status callback")
	if form.CallSid != "" && form.CallStatus != "" {
		h.escalation.StatusUpdate(detached(c), form.CallSid, form.CallStatus)
	}
	c.String(http.StatusOK, "OK")
}

// Escalate - 키 입력 없이 <Gather>가 끝났을 때
func (h *TwilioHandler) Escalate(c *gin.Context) {
	recordID, ok := requireRecordID(c)
	if !ok {
		return
	}

	res, err := h.escalation.AutoEscalate(detached(c), recordID)
	if err != nil {
		h.recordError(c, recordID, err)
		return
	}
	h.respond(c, recordID)(h.intentTwiML(res, recordID))
}

func (h *TwilioHandler) intentTwiML(res service.IntentResult, recordID string) (string, error) {
	switch res.Outcome {
	case service.OutcomeAcknowledged:
		return h.twiml.Hangup(template.AcknowledgedText)
	case service.OutcomeEscalated:
		name := ""
		if res.Backup != nil {
			name = res.Backup.Name
		}
		return h.twiml.Hangup(template.EscalationScript(name))
	case service.OutcomeNoBackup, service.OutcomeFailed:
		return h.twiml.Hangup(template.NoBackupText)
	case service.OutcomeRepeat, service.OutcomeDetails:
		return h.twiml.Alert(res.Decision, recordID)
	default:
		return h.twiml.Hangup(template.CallClosedText)
	}
}

// respond - TwiML 생성 결과를 application/xml로 응답
func (h *TwilioHandler) respond(c *gin.Context, recordID string) func(string, error) {
	return func(body string, err error) {
		if err != nil {
			h.log.Error().Err(err).Str("record_id", recordID).Msg("Failed to build TwiML")
			c.String(http.StatusInternalServerError, "Failed to build response")
			return
		}
		c.Data(http.StatusOK, "application/xml", []byte(body))
	}
}

func (h *TwilioHandler) recordError(c *gin.Context, recordID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.log.Warn().Str("record_id", recordID).Msg("Call record not found")
		c.String(http.StatusNotFound, "Call record not found")
		return
	}
	h.log.Error().Err(err).Str("record_id", recordID).Msg("Failed to handle Twilio callback")
	c.String(http.StatusInternalServerError, "Internal error")
}

func requireRecordID(c *gin.Context) (string, bool) {
	recordID := c.Query("recordId")
	if recordID == "" {
		c.String(http.StatusBadRequest, "Missing record ID")
		return "", false
	}
	return recordID, true
}
