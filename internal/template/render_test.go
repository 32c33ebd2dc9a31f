package template

import (
	"strings"
	"testing"

	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/stretchr/testify/assert"
)

func sampleDecision() model.RoutingDecision {
	return model.RoutingDecision{
		Action:             model.ActionCall,
		Severity:           model.SeverityCritical,
		Summary:            "Checkout is failing.",
		RootCause:          "Gateway timeout",
		TalkingPoints:      []string{"47 in the last 10 minutes", "150 users"},
		DiagnosticEvidence: []string{"check_http_endpoint: FAILED", "execute_python: OK", "extra"},
	}
}

func TestRenderCall(t *testing.T) {
	data := CallDataFromDecision(sampleDecision(), model.Engineer{Name: "Sarah Chen"})
	out := RenderCall(AssistantPrompt, data)

	assert.Contains(t, out, "phone call to Sarah Chen")
	assert.Contains(t, out, "a critical severity incident")
	assert.Contains(t, out, "Key Points: 47 in the last 10 minutes; 150 users")
	assert.Contains(t, out, "- check_http_endpoint: FAILED\n- execute_python: OK")
	assert.NotContains(t, out, "{{")
}

func TestAlertScript(t *testing.T) {
	script := AlertScript(sampleDecision())

	assert.True(t, strings.HasPrefix(script, "Alert: critical severity incident detected."))
	assert.Contains(t, script, "Likely cause: Gateway timeout")
	assert.Contains(t, script, "Diagnostic findings: check_http_endpoint: FAILED. execute_python: OK Press 1")
	assert.NotContains(t, script, "extra")
	assert.True(t, strings.HasSuffix(script, "Press 9 to repeat this message."))
}

func TestDetails(t *testing.T) {
	d := sampleDecision()

	tests := []struct {
		aspect  string
		contain string
	}{
		{aspect: "diagnostics", contain: "check_http_endpoint: FAILED. execute_python: OK. extra"},
		{aspect: "impact", contain: "The key impacts are: 47 in the last 10 minutes. 150 users"},
		{aspect: "timeline", contain: "suggests: Gateway timeout"},
		{aspect: "all", contain: "Summary: Checkout is failing. Root cause: Gateway timeout."},
		{aspect: "", contain: "Key points: 47 in the last 10 minutes. 150 users"},
	}
	for _, tt := range tests {
		t.Run(tt.aspect, func(t *testing.T) {
			assert.Contains(t, Details(d, tt.aspect), tt.contain)
		})
	}
}

func TestDecisionPromptTruncatesOutput(t *testing.T) {
	results := []model.DiagnosticResult{{Tool: "execute_python", Output: strings.Repeat("x", 600), Success: true}}
	out := DecisionPrompt(model.ErrorContext{Title: "t"}, "", results)

	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, strings.Repeat("x", 500)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 501))
}

func TestDiagnosePromptIteration(t *testing.T) {
	analysis := model.AnalysisResult{Hypothesis: "db down", SuggestedDiagnostics: []string{"ping db"}}
	out := DiagnosePrompt(model.ErrorContext{Service: model.ServicePayments}, analysis, nil, 1, 3, "- Payment Gateway Health: http://x/api/health/payments")

	assert.Contains(t, out, "## Iteration 2 of 3")
	assert.Contains(t, out, "1. ping db")
	assert.Contains(t, out, "http://x/api/health/payments")
	assert.Contains(t, out, "Run the first diagnostic test")
}
