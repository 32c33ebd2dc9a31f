package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/template"
	"github.com/kube-rca/oncall-agent/internal/tool"
	"github.com/rs/zerolog"
)

// Generator - LLM 호출 추상화 (client.GenAIClient가 구현)
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	GenerateWithTools(ctx context.Context, system, prompt string, tools []tool.Spec) (string, []tool.Call, error)
}

// LLMOracle - Generator 기반 Oracle 구현
type LLMOracle struct {
	gen           Generator
	tools         []tool.Spec
	healthBaseURL string
	validate      *validator.Validate
	log           zerolog.Logger
}

// 서비스별 헬스 체크 엔드포인트 (진단 프롬프트에 포함)
var healthEndpoints = map[model.Service]string{
	model.ServicePayments: "Payment Gateway Health",
	model.ServiceAuth:     "Authentication Service Health",
	model.ServiceAPI:      "Core API Health",
	model.ServiceUI:       "UI Service Health",
}

func NewLLMOracle(gen Generator, tools []tool.Spec, healthBaseURL string, log zerolog.Logger) *LLMOracle {
	return &LLMOracle{
		gen:           gen,
		tools:         tools,
		healthBaseURL: strings.TrimRight(healthBaseURL, "/"),
		validate:      validator.New(),
		log:           log.With().Str("component", "oracle").Logger(),
	}
}

func (o *LLMOracle) Analyze(ctx context.Context, ec model.ErrorContext) Outcome[model.AnalysisResult] {
	text, err := o.gen.Generate(ctx, template.AnalystSystem, template.AnalysisPrompt(ec))
	if err != nil {
		o.log.Warn().Err(err).Str("error_id", ec.ID).Msg("Analysis call failed, using fallback")
		return Fallback(FallbackAnalysis(ec))
	}

	analysis, err := decode[model.AnalysisResult](text, o.validate)
	if err != nil {
		o.log.Warn().Err(err).Str("error_id", ec.ID).Msg("Failed to parse analysis result")
		return Fallback(FallbackAnalysis(ec))
	}
	if analysis.SuggestedDiagnostics == nil {
		analysis.SuggestedDiagnostics = []string{}
	}
	return Parsed(analysis)
}

func (o *LLMOracle) DiagnoseStep(ctx context.Context, ec model.ErrorContext, analysis model.AnalysisResult, prior []model.DiagnosticResult, iteration int) Outcome[Plan] {
	prompt := template.DiagnosePrompt(ec, analysis, prior, iteration, MaxIterations, o.healthLines(ec.Service))

	_, calls, err := o.gen.GenerateWithTools(ctx, template.DiagnosticianSystem, prompt, o.tools)
	if err != nil {
		o.log.Warn().Err(err).Str("error_id", ec.ID).Int("iteration", iteration).Msg("Diagnose call failed, running no tools")
		return Fallback(Plan{})
	}
	return Parsed(Plan{Calls: calls, Continue: len(calls) > 0})
}

func (o *LLMOracle) Decide(ctx context.Context, ec model.ErrorContext, analysis *model.AnalysisResult, results []model.DiagnosticResult) (Outcome[model.RoutingDecision], error) {
	hypothesis := ""
	if analysis != nil {
		hypothesis = analysis.Hypothesis
	}

	text, err := o.gen.Generate(ctx, template.DecisionMakerSystem, template.DecisionPrompt(ec, hypothesis, results))
	if err != nil {
		o.log.Warn().Err(err).Str("error_id", ec.ID).Msg("Decision call failed, using rule-based decision")
		return Fallback(RuleBasedDecision(ec, analysis, results)), nil
	}

	decision, err := decode[model.RoutingDecision](text, o.validate)
	if err != nil {
		o.log.Warn().Err(err).Str("error_id", ec.ID).Msg("Failed to parse decision result")
		return Fallback(RuleBasedDecision(ec, analysis, results)), nil
	}
	if decision.TalkingPoints == nil {
		decision.TalkingPoints = []string{}
	}
	if decision.DiagnosticEvidence == nil {
		decision.DiagnosticEvidence = []string{}
	}
	return Parsed(decision), nil
}

// healthLines - 해당 서비스의 헬스 엔드포인트, 알 수 없는 서비스면 전체 목록
func (o *LLMOracle) healthLines(svc model.Service) string {
	if o.healthBaseURL == "" {
		return ""
	}
	if desc, ok := healthEndpoints[svc]; ok {
		return fmt.Sprintf("- %s: %s/api/health/%s", desc, o.healthBaseURL, svc)
	}
	lines := make([]string, 0, len(model.Services))
	for _, s := range model.Services {
		lines = append(lines, fmt.Sprintf("- %s: %s/api/health/%s", healthEndpoints[s], o.healthBaseURL, s))
	}
	return strings.Join(lines, "\n")
}
