// 진단 오케스트레이터
//
// ANALYZE → DIAGNOSE* → DECIDE 상태 머신
//   - ANALYZE → DIAGNOSE: 항상 1회
//   - DIAGNOSE → DIAGNOSE: 반복 횟수 < 3, 이번 단계에 도구 실행 1건 이상,
//     제안된 진단 수 > 누적 결과 수 일 때만
//   - DIAGNOSE → DECIDE: 그 외
//
// 최악의 실행 시간 = 오라클 호출 5회 + 3 × 도구 타임아웃 (단계 내 도구는 동시 실행)

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kube-rca/oncall-agent/internal/metrics"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/tool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MaxIterations - DIAGNOSE 단계 최대 반복 횟수
const MaxIterations = 3

// ErrNoDecision - DECIDE 단계가 RoutingDecision을 만들지 못함 (실행 실패)
var ErrNoDecision = errors.New("agent did not produce a routing decision")

// ToolRunner - 도구 실행기 (tool.Executor가 구현)
type ToolRunner interface {
	Execute(ctx context.Context, name string, args json.RawMessage) tool.Result
}

// Result - 진단 실행 1회의 결과
type Result struct {
	Decision       model.RoutingDecision
	Analysis       model.AnalysisResult
	Diagnostics    []model.DiagnosticResult
	Iterations     int
	AnalysisSource Source
	DecisionSource Source
}

// Orchestrator 구조체 정의
type Orchestrator struct {
	oracle Oracle
	tools  ToolRunner
	log    zerolog.Logger
	now    func() time.Time
}

func NewOrchestrator(oracle Oracle, tools ToolRunner, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		oracle: oracle,
		tools:  tools,
		log:    log.With().Str("component", "orchestrator").Logger(),
		now:    time.Now,
	}
}

type phase int

const (
	phaseAnalyze phase = iota
	phaseDiagnose
	phaseDecide
	phaseDone
)

// run - 실행 1회에만 속하는 상태
type run struct {
	ec             model.ErrorContext
	analysis       *model.AnalysisResult
	analysisSource Source
	results        []model.DiagnosticResult
	iteration      int
	cont           bool
	decision       *model.RoutingDecision
	decisionSource Source
}

// Run - ErrorContext 1건에 대한 진단 실행
// RoutingDecision 없이 종료된 경우에만 ErrNoDecision을 반환
func (o *Orchestrator) Run(ctx context.Context, ec model.ErrorContext) (Result, error) {
	log := o.log.With().Str("error_id", ec.ID).Str("service", string(ec.Service)).Logger()
	log.Info().Str("severity", string(ec.Severity)).Str("title", ec.Title).Msg("Starting diagnostic run")

	r := &run{ec: ec, cont: true, results: []model.DiagnosticResult{}}
	var decideErr error
	for p := phaseAnalyze; p != phaseDone; {
		switch p {
		case phaseAnalyze:
			o.analyze(ctx, r)
			p = phaseDiagnose
		case phaseDiagnose:
			o.diagnose(ctx, r, log)
			if r.cont && r.iteration < MaxIterations {
				p = phaseDiagnose
			} else {
				p = phaseDecide
			}
		case phaseDecide:
			if decideErr = o.decide(ctx, r); decideErr != nil {
				log.Error().Err(decideErr).Msg("Decision step failed")
			}
			p = phaseDone
		}
	}

	res := Result{
		Diagnostics:    r.results,
		Iterations:     r.iteration,
		AnalysisSource: r.analysisSource,
		DecisionSource: r.decisionSource,
	}
	if r.analysis != nil {
		res.Analysis = *r.analysis
	}
	if r.decision == nil {
		if decideErr != nil {
			return res, fmt.Errorf("%w: %v", ErrNoDecision, decideErr)
		}
		return res, ErrNoDecision
	}
	res.Decision = *r.decision

	metrics.ObserveRun(string(res.Decision.Action), string(res.DecisionSource), res.Iterations)
	log.Info().
		Str("action", string(res.Decision.Action)).
		Str("decision_severity", string(res.Decision.Severity)).
		Str("source", string(res.DecisionSource)).
		Int("iterations", res.Iterations).
		Int("diagnostics", len(res.Diagnostics)).
		Msg("Diagnostic run complete")
	return res, nil
}

func (o *Orchestrator) analyze(ctx context.Context, r *run) {
	out := o.oracle.Analyze(ctx, r.ec)
	analysis := out.Value
	r.analysis = &analysis
	r.analysisSource = out.Source
}

func (o *Orchestrator) diagnose(ctx context.Context, r *run, log zerolog.Logger) {
	if r.analysis == nil || r.iteration >= MaxIterations {
		log.Debug().Int("iteration", r.iteration).Msg("Skipping diagnostics")
		r.iteration++
		r.cont = false
		return
	}

	plan := o.oracle.DiagnoseStep(ctx, r.ec, *r.analysis, r.results, r.iteration)
	fresh := o.execute(ctx, plan.Value.Calls)
	r.results = append(r.results, fresh...)
	r.iteration++

	r.cont = r.iteration < MaxIterations &&
		len(fresh) > 0 &&
		len(r.analysis.SuggestedDiagnostics) > len(r.results)

	log.Debug().
		Int("iteration", r.iteration).
		Int("tool_calls", len(fresh)).
		Bool("oracle_continue", plan.Value.Continue).
		Bool("continue", r.cont).
		Msg("Diagnose step complete")
}

// execute - 단계 내 도구 호출을 동시에 실행하고 요청 순서대로 결과를 반환
// 도구 실패는 Result 값이므로 다른 호출을 취소하지 않음
func (o *Orchestrator) execute(ctx context.Context, calls []tool.Call) []model.DiagnosticResult {
	results := make([]model.DiagnosticResult, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			args := call.Args
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			res := o.tools.Execute(ctx, call.Name, args)
			results[i] = model.DiagnosticResult{
				Tool:      call.Name,
				Input:     string(args),
				Output:    res.Output,
				Success:   res.Success,
				Timestamp: o.now(),
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) decide(ctx context.Context, r *run) error {
	out, err := o.oracle.Decide(ctx, r.ec, r.analysis, r.results)
	if err != nil {
		return err
	}
	if !out.Value.Action.Valid() {
		return fmt.Errorf("invalid routing action %q", out.Value.Action)
	}
	decision := out.Value
	r.decision = &decision
	r.decisionSource = out.Source
	return nil
}
