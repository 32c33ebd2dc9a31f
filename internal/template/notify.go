// 외부 웹훅 본문 템플릿
//
// 지원하는 변수 형식:
//
//	{{event}}, {{timestamp}}
//	{{incident.id}}, {{incident.service}}, {{incident.title}},
//	{{incident.severity}}, {{incident.permalink}}
//	{{decision.action}}, {{decision.severity}}, {{decision.summary}}, {{decision.root_cause}}
//	{{call.id}}, {{call.status}}, {{call.engineer}}, {{call.escalated_to}}, {{call.reason}}

package template

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// DefaultNotificationBody - 본문 템플릿이 비어 있을 때 사용
const DefaultNotificationBody = `{"event":"{{event}}","timestamp":"{{timestamp}}",` +
	`"incident":{"id":"{{incident.id}}","service":"{{incident.service}}","title":"{{incident.title}}"},` +
	`"decision":{"action":"{{decision.action}}","severity":"{{decision.severity}}","summary":"{{decision.summary}}"},` +
	`"call":{"id":"{{call.id}}","status":"{{call.status}}","engineer":"{{call.engineer}}","escalated_to":"{{call.escalated_to}}"}}`

// NotificationData - 웹훅 1건에 주입할 값
// Context/Decision/Call 중 없는 항목의 변수는 빈 문자열로 치환
type NotificationData struct {
	Event     model.WebhookEvent
	Timestamp time.Time
	Context   *model.ErrorContext
	Decision  *model.RoutingDecision
	Call      *model.CallRecord
}

// RenderNotification - 본문 템플릿 치환
// escape가 true면 값을 JSON 문자열 안에 넣을 수 있도록 이스케이프
func RenderNotification(body string, data NotificationData, escape bool) string {
	if body == "" {
		body = DefaultNotificationBody
	}

	var incidentID, svc, title, severity, permalink string
	if ec := data.Context; ec != nil {
		incidentID, svc, title, severity, permalink = ec.ID, string(ec.Service), ec.Title, string(ec.Severity), ec.Permalink
	}

	var action, decisionSeverity, summary, rootCause string
	if d := data.Decision; d != nil {
		action, decisionSeverity, summary, rootCause = string(d.Action), string(d.Severity), d.Summary, d.RootCause
	}

	var callID, status, engineer, escalatedTo, reason string
	if rec := data.Call; rec != nil {
		callID, status, engineer = rec.ID, string(rec.Status), rec.Engineer.Name
		if rec.EscalatedTo != nil {
			escalatedTo = rec.EscalatedTo.Name
		}
		reason = rec.EscalationReason
		if reason == "" {
			reason = rec.EndedReason
		}
		if incidentID == "" {
			incidentID, svc = rec.ErrorEventID, string(rec.Service)
		}
	}

	pairs := []string{
		"{{event}}", string(data.Event),
		"{{timestamp}}", data.Timestamp.UTC().Format(time.RFC3339),
		"{{incident.id}}", incidentID,
		"{{incident.service}}", svc,
		"{{incident.title}}", title,
		"{{incident.severity}}", severity,
		"{{incident.permalink}}", permalink,
		"{{decision.action}}", action,
		"{{decision.severity}}", decisionSeverity,
		"{{decision.summary}}", summary,
		"{{decision.root_cause}}", rootCause,
		"{{call.id}}", callID,
		"{{call.status}}", status,
		"{{call.engineer}}", engineer,
		"{{call.escalated_to}}", escalatedTo,
		"{{call.reason}}", reason,
	}
	if escape {
		for i := 1; i < len(pairs); i += 2 {
			pairs[i] = jsonEscape(pairs[i])
		}
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
