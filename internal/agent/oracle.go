package agent

import (
	"context"

	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/tool"
)

// Plan - DIAGNOSE 단계 1회에서 오라클이 요청한 도구 호출
// Continue는 오라클의 의견일 뿐이며 반복 여부는 Orchestrator가 결정함
type Plan struct {
	Calls    []tool.Call
	Continue bool
}

// Oracle - 분석/진단/결정 3단계 판단자
//
// 각 호출은 네트워크 재시도 없이 1회만 수행해야 함
// 응답을 파싱할 수 없으면 Fallback 결과를 반환하고 error로 전파하지 않음
type Oracle interface {
	Analyze(ctx context.Context, ec model.ErrorContext) Outcome[model.AnalysisResult]
	DiagnoseStep(ctx context.Context, ec model.ErrorContext, analysis model.AnalysisResult, prior []model.DiagnosticResult, iteration int) Outcome[Plan]
	// Decide는 규칙 기반 대체값조차 만들 수 없을 때만 error를 반환
	Decide(ctx context.Context, ec model.ErrorContext, analysis *model.AnalysisResult, results []model.DiagnosticResult) (Outcome[model.RoutingDecision], error)
}
