package template

import (
	"fmt"
	"strings"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// 결정 프롬프트에 포함하는 도구 출력 최대 길이
const maxOutputInPrompt = 500

const AnalystSystem = `You are an expert SRE (Site Reliability Engineer) analyzing production errors.

Given an error event, assess severity and decide which diagnostic tests should be run (max 3).

Guidelines for severity assessment:
- CRITICAL: Payment errors, data loss, security breaches, complete service outages
- HIGH: Authentication failures affecting multiple users, partial outages
- MEDIUM: API timeouts, intermittent errors
- LOW: UI rendering issues, cosmetic bugs, single-user issues

Respond ONLY with valid JSON matching this schema:
{
  "initialSeverity": "critical" | "high" | "medium" | "low",
  "hypothesis": "string describing likely root cause",
  "suggestedDiagnostics": ["array", "of", "diagnostic", "tests"]
}`

const DiagnosticianSystem = `You are a systems diagnostician with access to diagnostic tools.

Run diagnostic tests to gather evidence about production errors:
1. execute_python - Execute Python code to diagnose issues (DB checks, API tests, config validation)
2. check_http_endpoint - Check if an HTTP endpoint is responding and measure latency

Keep scripts simple, print clear output and stop calling tools when you have enough evidence.
Maximum 3 diagnostic iterations.`

const DecisionMakerSystem = `You are an incident response decision maker.

Decide the appropriate action:
1. CALL - Page the on-call engineer immediately (critical/high severity, high frequency, active degradation)
2. MONITOR - No immediate action needed, intermittent or medium severity
3. LOG - Low severity, single occurrence, no user impact

Respond ONLY with valid JSON matching this schema:
{
  "action": "CALL" | "MONITOR" | "LOG",
  "severity": "critical" | "high" | "medium" | "low",
  "summary": "2-3 sentence summary for the on-call engineer",
  "rootCause": "identified or suspected root cause",
  "talkingPoints": ["key", "facts", "for", "phone", "call"],
  "diagnosticEvidence": ["summary", "of", "diagnostic", "findings"]
}`

// AnalysisPrompt - 분석 단계 사용자 메시지
func AnalysisPrompt(ec model.ErrorContext) string {
	var b strings.Builder
	writeImpact(&b, ec)
	fmt.Fprintf(&b, "**Level:** %s\n\n**Message:**\n%s\n\n", ec.Level, ec.Message)

	stack := ec.StackTrace
	if stack == "" {
		stack = "No stack trace available"
	}
	fmt.Fprintf(&b, "**Stack Trace:**\n```\n%s\n```\n\nAnalyze this error and provide your assessment.", stack)
	return b.String()
}

// DiagnosePrompt - 진단 단계 사용자 메시지
// healthEndpoints는 "- 설명: URL" 형식의 줄 목록
func DiagnosePrompt(ec model.ErrorContext, analysis model.AnalysisResult, prior []model.DiagnosticResult, iteration, maxIterations int, healthEndpoints string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Error Being Diagnosed\n\n**Title:** %s\n**Service:** %s\n\n", ec.Title, ec.Service)
	fmt.Fprintf(&b, "## Analysis Hypothesis\n%s\n\n## Suggested Diagnostics\n", analysis.Hypothesis)
	for i, d := range analysis.SuggestedDiagnostics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	if healthEndpoints != "" {
		fmt.Fprintf(&b, "\n## Health Endpoints\n%s\n", healthEndpoints)
	}
	fmt.Fprintf(&b, "\n## Iteration %d of %d\n", iteration+1, maxIterations)

	if len(prior) == 0 {
		b.WriteString("\nRun the first diagnostic test to gather evidence.")
		return b.String()
	}

	b.WriteString("\n## Previous Diagnostic Results\n")
	for _, r := range prior {
		fmt.Fprintf(&b, "\n### %s (%s)\n```\n%s\n```\n", r.Tool, successLabel(r.Success), r.Output)
	}
	b.WriteString("\nBased on these results, decide if you need more diagnostics or have enough evidence.")
	return b.String()
}

// DecisionPrompt - 결정 단계 사용자 메시지
func DecisionPrompt(ec model.ErrorContext, hypothesis string, results []model.DiagnosticResult) string {
	var b strings.Builder
	writeImpact(&b, ec)
	if hypothesis == "" {
		hypothesis = "Unknown"
	}
	fmt.Fprintf(&b, "\n## Analysis Hypothesis\n%s\n\n## Diagnostic Results\n", hypothesis)

	if len(results) == 0 {
		b.WriteString("No diagnostic tests were run.\n")
	}
	for _, r := range results {
		out := r.Output
		if len(out) > maxOutputInPrompt {
			out = out[:maxOutputInPrompt] + "..."
		}
		fmt.Fprintf(&b, "\n### %s (%s)\n%s\n", r.Tool, successLabel(r.Success), out)
	}
	b.WriteString("\nBased on all this information, make your routing decision.")
	return b.String()
}

func writeImpact(b *strings.Builder, ec model.ErrorContext) {
	fmt.Fprintf(b, "## Error Event\n\n**Title:** %s\n**Service:** %s\n**Tagged Severity:** %s\n", ec.Title, ec.Service, ec.Severity)
	fmt.Fprintf(b, "**Affected Users:** %d\n**Total Occurrences:** %d\n**Occurrences in Last 10 Minutes:** %d\n",
		ec.UserCount, ec.OccurrenceCount, ec.FrequencyLast10Min)
}

func successLabel(ok bool) string {
	if ok {
		return "SUCCESS"
	}
	return "FAILED"
}
