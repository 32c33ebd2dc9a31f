// Slack 알림 메시지 관련 메서드 정의 (service.Notifier 구현)

package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// NotifyDecision - 라우팅 결정을 새 메시지로 전송하고 thread_ts 저장
func (c *SlackClient) NotifyDecision(ctx context.Context, ec model.ErrorContext, decision model.RoutingDecision) {
	if !c.IsConfigured() {
		return
	}

	fields := []SlackField{
		{Title: "Service", Value: string(ec.Service), Short: true},
		{Title: "Severity", Value: string(decision.Severity), Short: true},
		{Title: "Action", Value: string(decision.Action), Short: true},
		{Title: "Last 10 min", Value: fmt.Sprintf("%d", ec.FrequencyLast10Min), Short: true},
	}
	if decision.RootCause != "" {
		fields = append(fields, SlackField{Title: "Root Cause", Value: toSlackMarkdown(decision.RootCause)})
	}
	if len(decision.DiagnosticEvidence) > 0 {
		fields = append(fields, SlackField{Title: "Evidence", Value: "• " + strings.Join(decision.DiagnosticEvidence, "\n• ")})
	}
	if ec.Permalink != "" {
		fields = append(fields, SlackField{Title: "Issue", Value: fmt.Sprintf("<%s|🔍 Sentry 이슈 보러가기>", ec.Permalink)})
	}

	msg := SlackMessage{
		Channel: c.channelID,
		Attachments: []SlackAttachment{
			{
				Color:  c.getColorBySeverity(decision.Severity),
				Title:  fmt.Sprintf("%s [%s] %s", c.getEmojiByAction(decision.Action), decision.Severity, ec.Title),
				Text:   toSlackMarkdown(decision.Summary),
				Fields: fields,
				Footer: "oncall-agent",
				Ts:     time.Now().Unix(),
			},
		},
	}

	resp, err := c.send(ctx, msg)
	if err != nil {
		c.log.Error().Err(err).Str("context_id", ec.ID).Msg("Failed to send decision to Slack")
		return
	}
	// 통화 상태 스레드는 CALL 결정에만 달림
	if resp.TS != "" && decision.Action == model.ActionCall {
		c.StoreThreadTS(ec.ID, resp.TS)
	}
}

// NotifyCall - 통화 상태 변경을 결정 메시지의 스레드로 전송
// 결정 메시지가 없으면 새 메시지로 전송
func (c *SlackClient) NotifyCall(ctx context.Context, rec model.CallRecord) {
	if !c.IsConfigured() {
		return
	}

	msg := SlackMessage{Channel: c.channelID, Text: c.callText(rec)}
	if threadTS, ok := c.GetThreadTS(rec.ErrorEventID); ok {
		msg.ThreadTS = threadTS
	}

	if _, err := c.send(ctx, msg); err != nil {
		c.log.Error().Err(err).Str("record_id", rec.ID).Msg("Failed to send call update to Slack")
		return
	}
	// 백업 통화가 이어지는 escalated는 스레드 유지
	if rec.Status == model.CallAcknowledged || rec.Status == model.CallFailed {
		c.DeleteThreadTS(rec.ErrorEventID)
	}
}

func (c *SlackClient) callText(rec model.CallRecord) string {
	switch rec.Status {
	case model.CallAcknowledged:
		text := fmt.Sprintf("✅ *%s* acknowledged the incident", rec.Engineer.Name)
		if rec.AcknowledgmentNote != "" {
			text += ": " + rec.AcknowledgmentNote
		}
		return text
	case model.CallEscalated:
		backup := "backup"
		if rec.EscalatedTo != nil {
			backup = rec.EscalatedTo.Name
		}
		return fmt.Sprintf("📞 Escalated from *%s* to *%s* (%s)", rec.Engineer.Name, backup, rec.EscalationReason)
	case model.CallFailed:
		reason := rec.EscalationReason
		if reason == "" {
			reason = rec.EndedReason
		}
		return fmt.Sprintf("❌ Call to *%s* failed (%s)", rec.Engineer.Name, reason)
	default:
		return fmt.Sprintf("☎️ Call to *%s* is %s", rec.Engineer.Name, rec.Status)
	}
}

// Severity에 따른 적절한 메시지 색상 반환
func (c *SlackClient) getColorBySeverity(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "#dc3545" // red
	case model.SeverityHigh:
		return "#fd7e14" // orange
	case model.SeverityMedium:
		return "#ffc107" // yellow
	default:
		return "#17a2b8" // blue
	}
}

// Action에 따른 적절한 메시지 이모지 반환
func (c *SlackClient) getEmojiByAction(action model.RoutingAction) string {
	switch action {
	case model.ActionCall:
		return "🚨"
	case model.ActionMonitor:
		return "👀"
	default:
		return "📝"
	}
}
