package template

import (
	"fmt"
	"strings"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// 키패드(DTMF) 통화에서 읽어주는 고정 문구
const (
	KeyPrompt        = "Please press a key now."
	NoInputScript    = "No input received. Escalating to backup."
	AcknowledgedText = "Thank you. The incident has been acknowledged. A summary will be sent to your email. Goodbye."
	NoBackupText     = "No backup engineer available. Please check your email for incident details. Goodbye."
	InvalidInputText = "Invalid input. Press 1 to acknowledge, 2 to escalate, or 9 to repeat."
	CallClosedText   = "This incident has already been handled. Goodbye."
)

// AlertScript - 키패드 통화용 경보 스크립트
func AlertScript(decision model.RoutingDecision) string {
	parts := []string{fmt.Sprintf("Alert: %s severity incident detected.", decision.Severity)}

	if decision.Summary != "" {
		parts = append(parts, decision.Summary)
	}
	if decision.RootCause != "" {
		parts = append(parts, "Likely cause: "+decision.RootCause)
	}
	parts = append(parts, decision.TalkingPoints...)
	if len(decision.DiagnosticEvidence) > 0 {
		parts = append(parts, "Diagnostic findings: "+strings.Join(firstN(decision.DiagnosticEvidence, 2), ". "))
	}

	parts = append(parts,
		"Press 1 to acknowledge this incident.",
		"Press 2 to escalate to backup engineer.",
		"Press 9 to repeat this message.",
	)
	return strings.Join(parts, " ")
}

// EscalationScript - 백업 엔지니어에게 넘길 때 안내
func EscalationScript(backupName string) string {
	if backupName == "" {
		return "Escalating to backup on-call engineer. Please hold."
	}
	return fmt.Sprintf("Escalating to backup on-call engineer, %s. They will receive a call shortly. Goodbye.", backupName)
}

// AcknowledgedReply - 음성 어시스턴트 acknowledge_incident 응답
func AcknowledgedReply(engineerName string) string {
	return fmt.Sprintf("Thank you %s. The incident has been acknowledged and assigned to you. A summary has been sent to your email. You can hang up now.", engineerName)
}

// EscalatedReply - 음성 어시스턴트 escalate_to_backup 응답
func EscalatedReply(backupName string) string {
	return fmt.Sprintf("Understood. I'm escalating this to %s, the backup on-call engineer. They will receive a call shortly. Thank you for letting me know. You can hang up now.", backupName)
}

// NoBackupReply - 백업이 없을 때 음성 어시스턴트 응답
const NoBackupReply = "I'm sorry, there is no backup engineer available for this service. Please acknowledge the incident or contact your team lead directly."

// Details - get_more_details(aspect) 응답
// aspect: diagnostics, impact, timeline, 그 외는 전체 요약
func Details(decision model.RoutingDecision, aspect string) string {
	switch aspect {
	case "diagnostics":
		if len(decision.DiagnosticEvidence) == 0 {
			return "No diagnostic tests were run for this incident."
		}
		return "Here are the diagnostic findings: " + strings.Join(decision.DiagnosticEvidence, ". ")
	case "impact":
		return "The key impacts are: " + strings.Join(decision.TalkingPoints, ". ")
	case "timeline":
		return "The incident was detected and analyzed automatically. Root cause analysis suggests: " + decision.RootCause
	default:
		return fmt.Sprintf("Summary: %s Root cause: %s. Diagnostic evidence: %s. Key points: %s",
			decision.Summary,
			decision.RootCause,
			strings.Join(firstN(decision.DiagnosticEvidence, 2), ". "),
			strings.Join(firstN(decision.TalkingPoints, 2), ". "),
		)
	}
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
