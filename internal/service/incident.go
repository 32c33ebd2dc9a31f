// 인시던트 파이프라인
//
// Sentry 웹훅 → ErrorContext 생성(빈도 포함) → 진단 실행 → RoutingDecision
//   - CALL: 서비스 primary 엔지니어에게 발신
//   - MONITOR, LOG: 알림만 남김

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kube-rca/oncall-agent/internal/agent"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/rs/zerolog"
)

// Runner - 진단 실행기 (agent.Orchestrator가 구현)
type Runner interface {
	Run(ctx context.Context, ec model.ErrorContext) (agent.Result, error)
}

// Outcome - 인시던트 처리 1건의 결과
type Outcome struct {
	Context model.ErrorContext
	Result  agent.Result
	// Call - CALL 결정으로 발신한 기록 (발신 실패 시 failed 상태)
	Call *model.CallRecord
}

// IncidentService 구조체 정의
type IncidentService struct {
	enricher *Enricher
	runner   Runner
	roster   Roster
	caller   *Caller
	notifier Notifier
	log      zerolog.Logger
}

func NewIncidentService(enricher *Enricher, runner Runner, roster Roster, caller *Caller, notifier Notifier, log zerolog.Logger) *IncidentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &IncidentService{
		enricher: enricher,
		runner:   runner,
		roster:   roster,
		caller:   caller,
		notifier: notifier,
		log:      log.With().Str("component", "incident").Logger(),
	}
}

// Process - ErrorContext 1건 진단 후 결정에 따라 발신
func (s *IncidentService) Process(ctx context.Context, ec model.ErrorContext) (Outcome, error) {
	log := s.log.With().Str("context_id", ec.ID).Str("service", string(ec.Service)).Logger()

	res, err := s.runner.Run(ctx, ec)
	if err != nil {
		return Outcome{Context: ec}, err
	}
	out := Outcome{Context: ec, Result: res}
	decision := res.Decision

	log.Info().
		Str("action", string(decision.Action)).
		Str("severity", string(decision.Severity)).
		Str("source", string(res.DecisionSource)).
		Int("iterations", res.Iterations).
		Msg("Routing decision made")
	s.notifier.NotifyDecision(ctx, ec, decision)

	if decision.Action != model.ActionCall {
		return out, nil
	}

	engineer, ok := s.roster.Primary(ec.Service)
	if !ok {
		return out, fmt.Errorf("%w: %s", ErrNoEngineer, ec.Service)
	}

	rec, err := s.caller.InitiateCall(ctx, CallRequest{
		Engineer:     engineer,
		Decision:     decision,
		ErrorEventID: ec.ID,
		Service:      ec.Service,
	})
	if rec.ID != "" {
		out.Call = &rec
	}
	return out, err
}

// HandleSentry - Sentry 웹훅 1건 처리 후 응답 본문 생성
//
//	action=test 또는 issue 없음    → ok
//	action != created              → ignored
//	그 외                          → call_initiated | monitor | log | error
func (s *IncidentService) HandleSentry(ctx context.Context, payload model.SentryWebhook) model.IncidentWebhookResponse {
	if payload.Action == "test" || payload.Data.Issue == nil {
		return model.IncidentWebhookResponse{Status: "ok", Message: "Test webhook received"}
	}
	if payload.Action != "created" {
		return model.IncidentWebhookResponse{Status: "ignored", Reason: "action=" + payload.Action}
	}

	ec, err := s.enricher.Enrich(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build error context")
		return model.IncidentWebhookResponse{Status: "error", Error: err.Error()}
	}
	s.log.Info().
		Str("context_id", ec.ID).
		Str("issue_id", ec.SourceIssueID).
		Str("service", string(ec.Service)).
		Str("severity", string(ec.Severity)).
		Int("frequency", ec.FrequencyLast10Min).
		Msg("Sentry issue received")

	out, err := s.Process(ctx, ec)
	if err != nil && !errors.Is(err, ErrCallRejected) {
		s.log.Error().Err(err).Str("context_id", ec.ID).Msg("Failed to process incident")
		resp := model.IncidentWebhookResponse{Status: "error", Error: err.Error()}
		if out.Result.Decision.Action != "" {
			d := out.Result.Decision
			resp.Decision = &d
		}
		return resp
	}

	decision := out.Result.Decision
	resp := model.IncidentWebhookResponse{Decision: &decision}
	switch decision.Action {
	case model.ActionCall:
		resp.Status = "call_initiated"
		if out.Call != nil {
			resp.Call = &model.CallSummary{
				ID:       out.Call.ID,
				Engineer: out.Call.Engineer.Name,
				Status:   out.Call.Status,
			}
		}
		if err != nil {
			resp.Error = err.Error()
		}
	case model.ActionMonitor:
		resp.Status = "monitor"
	default:
		resp.Status = "log"
	}
	return resp
}
