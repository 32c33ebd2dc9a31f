package agent

import (
	"context"
	"fmt"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// FrequencyThreshold - 최근 10분 발생 횟수가 이 값 이상이면 high로 간주
const FrequencyThreshold = 5

// FallbackAnalysis - 분석 응답을 쓸 수 없을 때의 기본 분석
// 태깅된 심각도를 그대로 쓰고 추가 진단은 제안하지 않음
func FallbackAnalysis(ec model.ErrorContext) model.AnalysisResult {
	return model.AnalysisResult{
		InitialSeverity:      ec.Severity,
		Hypothesis:           fmt.Sprintf("Error in %s service: %s", ec.Service, ec.Title),
		SuggestedDiagnostics: []string{},
	}
}

// RuleBasedDecision - 결정 응답을 쓸 수 없을 때의 규칙 기반 판단
//
//	critical                  → CALL
//	high && freq >= 5         → CALL
//	high                      → MONITOR
//	freq >= 5                 → CALL (severity high로 상향)
//	medium                    → MONITOR
//	그 외                     → LOG
//
// 같은 입력에 항상 같은 결과를 반환함
func RuleBasedDecision(ec model.ErrorContext, analysis *model.AnalysisResult, results []model.DiagnosticResult) model.RoutingDecision {
	action := model.ActionLog
	severity := ec.Severity
	frequent := ec.FrequencyLast10Min >= FrequencyThreshold

	switch {
	case severity == model.SeverityCritical:
		action = model.ActionCall
	case severity == model.SeverityHigh && frequent:
		action = model.ActionCall
	case severity == model.SeverityHigh:
		action = model.ActionMonitor
	case frequent:
		action = model.ActionCall
		severity = model.SeverityHigh
	case severity == model.SeverityMedium:
		action = model.ActionMonitor
	}
	if !severity.Valid() {
		severity = model.SeverityLow
	}

	rootCause := "Unknown - analysis failed"
	if analysis != nil && analysis.Hypothesis != "" {
		rootCause = analysis.Hypothesis
	}

	testsLine := "No diagnostic tests run"
	if len(results) > 0 {
		passed := 0
		for _, r := range results {
			if r.Success {
				passed++
			}
		}
		testsLine = fmt.Sprintf("%d/%d diagnostic tests passed", passed, len(results))
	}

	evidence := make([]string, 0, len(results))
	for _, r := range results {
		status := "FAILED"
		if r.Success {
			status = "OK"
		}
		evidence = append(evidence, fmt.Sprintf("%s: %s", r.Tool, status))
	}

	return model.RoutingDecision{
		Action:    action,
		Severity:  severity,
		Summary:   fmt.Sprintf("%s error: %s. %d users affected.", ec.Service, ec.Title, ec.UserCount),
		RootCause: rootCause,
		TalkingPoints: []string{
			fmt.Sprintf("%d total occurrences", ec.OccurrenceCount),
			fmt.Sprintf("%d in the last 10 minutes", ec.FrequencyLast10Min),
			testsLine,
		},
		DiagnosticEvidence: evidence,
	}
}

// RuleOracle - AI 키가 없을 때 사용하는 Oracle
// 항상 규칙 기반 결과를 Fallback으로 반환하고 도구는 실행하지 않음
type RuleOracle struct{}

func (RuleOracle) Analyze(_ context.Context, ec model.ErrorContext) Outcome[model.AnalysisResult] {
	return Fallback(FallbackAnalysis(ec))
}

func (RuleOracle) DiagnoseStep(context.Context, model.ErrorContext, model.AnalysisResult, []model.DiagnosticResult, int) Outcome[Plan] {
	return Fallback(Plan{})
}

func (RuleOracle) Decide(_ context.Context, ec model.ErrorContext, analysis *model.AnalysisResult, results []model.DiagnosticResult) (Outcome[model.RoutingDecision], error) {
	return Fallback(RuleBasedDecision(ec, analysis, results)), nil
}
