// Package template provides call script and assistant prompt rendering.
//
// 지원하는 변수 형식:
//
//	{{engineer.name}}
//	{{decision.severity}}, {{decision.summary}}, {{decision.root_cause}},
//	{{decision.talking_points}}, {{decision.evidence}}
package template

import (
	"strings"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// CallData - 템플릿 렌더링에 사용할 발신 데이터
type CallData struct {
	EngineerName  string
	Severity      string
	Summary       string
	RootCause     string
	TalkingPoints []string
	Evidence      []string
}

// CallDataFromDecision - RoutingDecision과 수신자로 CallData 생성
func CallDataFromDecision(decision model.RoutingDecision, engineer model.Engineer) CallData {
	return CallData{
		EngineerName:  engineer.Name,
		Severity:      string(decision.Severity),
		Summary:       decision.Summary,
		RootCause:     decision.RootCause,
		TalkingPoints: decision.TalkingPoints,
		Evidence:      decision.DiagnosticEvidence,
	}
}

// RenderCall - 템플릿의 변수를 실제 값으로 치환
//
// talking_points는 "; "로, evidence는 "- " 목록으로 펼칩니다.
func RenderCall(body string, data CallData) string {
	evidence := make([]string, 0, len(data.Evidence))
	for _, e := range data.Evidence {
		evidence = append(evidence, "- "+e)
	}

	return strings.NewReplacer(
		"{{engineer.name}}", data.EngineerName,
		"{{decision.severity}}", data.Severity,
		"{{decision.summary}}", data.Summary,
		"{{decision.root_cause}}", data.RootCause,
		"{{decision.talking_points}}", strings.Join(data.TalkingPoints, "; "),
		"{{decision.evidence}}", strings.Join(evidence, "\n"),
	).Replace(body)
}

// AssistantPrompt - 음성 어시스턴트 시스템 프롬프트 템플릿
const AssistantPrompt = `You are an SRE alerting assistant making an urgent phone call to {{engineer.name}}.
Your role is to clearly communicate a {{decision.severity}} severity incident and get their response.

INCIDENT DETAILS:
- Summary: {{decision.summary}}
- Root Cause: {{decision.root_cause}}
- Key Points: {{decision.talking_points}}

DIAGNOSTIC EVIDENCE:
{{decision.evidence}}

YOUR OBJECTIVES:
1. Clearly explain the incident
2. Get the engineer to either acknowledge they'll handle it, or escalate to backup
3. Answer any questions they have about the incident using the diagnostic details above

BEHAVIOR GUIDELINES:
- Be concise and professional
- If they acknowledge, use the acknowledge_incident function
- If they want to escalate, use the escalate_to_backup function
- If they ask for more details, use the get_more_details function
- Maximum call duration is 5 minutes

Do NOT make up information. Only share what's in the incident details above.`

// FirstMessage - 음성 어시스턴트 첫 발화 템플릿
const FirstMessage = `Hello {{engineer.name}}, this is an automated SRE alert. We've detected a {{decision.severity}} severity incident. {{decision.summary}} Do you want me to provide more details, or are you ready to acknowledge this incident?`
