// 전화 에스컬레이션 상태 머신
//
//	initiated → ringing → answered → {acknowledged | escalated | failed}
//
// 통신사 이벤트만으로 전이함 (내부 타이머 없음)
//   - 키패드(1, 2, 9)와 음성 어시스턴트 함수 호출은 모두 HandleIntent로 모임
//   - 응답 없이 통화가 끝나면 EndOfCall이 자동 에스컬레이션
//   - 종료 상태(acknowledged, escalated, failed)에서는 이후 이벤트를 무시 (중복 웹훅)

package service

import (
	"context"
	"errors"
	"time"

	"github.com/kube-rca/oncall-agent/internal/metrics"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/store"
	"github.com/rs/zerolog"
)

// AutoEscalationReason - 응답 없이 종료된 통화의 에스컬레이션 사유
const AutoEscalationReason = "No response from primary on-call"

const noBackupReason = "No backup engineer available"

// Intent - 엔지니어의 의사 표시
type Intent string

const (
	IntentAcknowledge Intent = "acknowledge"
	IntentEscalate    Intent = "escalate"
	IntentRepeat      Intent = "repeat"
	IntentDetails     Intent = "details"
)

// IntentOutcome - HandleIntent 처리 결과
type IntentOutcome string

const (
	OutcomeAcknowledged IntentOutcome = "acknowledged"
	OutcomeEscalated    IntentOutcome = "escalated"
	OutcomeNoBackup     IntentOutcome = "no_backup"
	OutcomeFailed       IntentOutcome = "failed"
	OutcomeRepeat       IntentOutcome = "repeat"
	OutcomeDetails      IntentOutcome = "details"
	// OutcomeIgnored - 이미 종료 상태인 기록에 대한 이벤트
	OutcomeIgnored IntentOutcome = "ignored"
)

// IntentResult - 어댑터(Twilio, Vapi)가 응답을 만들 때 사용하는 결과
type IntentResult struct {
	Outcome  IntentOutcome
	Record   model.CallRecord
	Decision model.RoutingDecision
	Backup   *model.Engineer
	// BackupCall - 백업 엔지니어에게 새로 건 전화 (발신 실패 시 nil)
	BackupCall *model.CallRecord
}

// EscalationService 구조체 정의
type EscalationService struct {
	store    *store.CallStore
	roster   Roster
	caller   *Caller
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewEscalationService(calls *store.CallStore, roster Roster, caller *Caller, notifier Notifier, log zerolog.Logger) *EscalationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &EscalationService{
		store:    calls,
		roster:   roster,
		caller:   caller,
		notifier: notifier,
		log:      log.With().Str("component", "escalation").Logger(),
		now:      time.Now,
	}
}

// RecordForProvider - 통신사 call id로 record id 조회
// 모르는 id는 로그만 남기고 ok=false (오류 아님)
func (s *EscalationService) RecordForProvider(providerID, event string) (string, bool) {
	rec, err := s.store.GetByProviderID(providerID)
	if err != nil {
		metrics.ObserveCallEvent(event, false)
		s.log.Warn().Str("provider_call_id", providerID).Str("event", event).Msg("Ignoring event for unknown call")
		return "", false
	}
	metrics.ObserveCallEvent(event, true)
	return rec.ID, true
}

// HandleIntent - 키패드와 음성 어시스턴트가 공유하는 의사 처리
// arg: acknowledge는 메모, escalate는 사유, 나머지는 무시
func (s *EscalationService) HandleIntent(ctx context.Context, recordID string, intent Intent, arg string) (IntentResult, error) {
	switch intent {
	case IntentAcknowledge:
		return s.acknowledge(ctx, recordID, arg)
	case IntentEscalate:
		return s.escalate(ctx, recordID, arg, false)
	case IntentRepeat, IntentDetails:
		rec, err := s.store.Get(recordID)
		if err != nil {
			return IntentResult{}, err
		}
		decision, err := s.store.Decision(recordID)
		if err != nil {
			return IntentResult{}, err
		}
		outcome := OutcomeRepeat
		if intent == IntentDetails {
			outcome = OutcomeDetails
		}
		return IntentResult{Outcome: outcome, Record: rec, Decision: decision}, nil
	default:
		return IntentResult{}, errors.New("unknown intent " + string(intent))
	}
}

// Ringing - queued/ringing 보고. initiated에서만 전이
func (s *EscalationService) Ringing(recordID string) (model.CallRecord, error) {
	return s.store.Update(recordID, func(r *model.CallRecord) error {
		if r.Status == model.CallInitiated {
			r.Status = model.CallRinging
		}
		return nil
	})
}

// Answered - 통화 연결 보고. 종료 상태가 아니면 answered로 전이하고 최초 응답 시각 기록
func (s *EscalationService) Answered(recordID string) (model.CallRecord, error) {
	return s.store.Update(recordID, func(r *model.CallRecord) error {
		if r.Status.Terminal() {
			return nil
		}
		r.Status = model.CallAnswered
		if r.AnsweredAt == nil {
			now := s.now()
			r.AnsweredAt = &now
		}
		return nil
	})
}

// StatusUpdate - 통신사 상태 문자열을 상태 머신 이벤트로 변환
func (s *EscalationService) StatusUpdate(ctx context.Context, providerID, status string) {
	recordID, ok := s.RecordForProvider(providerID, "status-update")
	if !ok {
		return
	}

	var err error
	switch status {
	case "queued", "initiated", "ringing":
		_, err = s.Ringing(recordID)
	case "in-progress", "answered":
		_, err = s.Answered(recordID)
	case "completed", "busy", "no-answer", "failed", "canceled", "ended":
		_, err = s.endCall(ctx, recordID, status, "")
	default:
		s.log.Debug().Str("record_id", recordID).Str("status", status).Msg("Unhandled call status")
	}
	if err != nil {
		s.log.Error().Err(err).Str("record_id", recordID).Str("status", status).Msg("Failed to apply call status")
	}
}

// EndOfCall - 통화 종료 보고 (통신사 call id 기준)
// 모르는 id면 OutcomeIgnored
func (s *EscalationService) EndOfCall(ctx context.Context, providerID, endedReason, transcript string) (IntentResult, error) {
	recordID, ok := s.RecordForProvider(providerID, "end-of-call")
	if !ok {
		return IntentResult{Outcome: OutcomeIgnored}, nil
	}
	return s.endCall(ctx, recordID, endedReason, transcript)
}

// AutoEscalate - 키패드 입력 대기 시간 초과 (record id 기준)
func (s *EscalationService) AutoEscalate(ctx context.Context, recordID string) (IntentResult, error) {
	return s.escalate(ctx, recordID, AutoEscalationReason, true)
}

func (s *EscalationService) acknowledge(ctx context.Context, recordID, note string) (IntentResult, error) {
	outcome := OutcomeIgnored
	rec, err := s.store.Update(recordID, func(r *model.CallRecord) error {
		if r.Status.Terminal() {
			return nil
		}
		now := s.now()
		r.Status = model.CallAcknowledged
		r.AcknowledgedAt = &now
		r.AcknowledgmentNote = note
		outcome = OutcomeAcknowledged
		return nil
	})
	if err != nil {
		return IntentResult{}, err
	}

	if outcome == OutcomeAcknowledged {
		s.log.Info().Str("record_id", recordID).Str("engineer", rec.Engineer.Name).Msg("Incident acknowledged")
		s.notifier.NotifyCall(ctx, rec)
	}
	return IntentResult{Outcome: outcome, Record: rec}, nil
}

// endCall - 종료 정보 기록 후 응답 없던 통화는 자동 에스컬레이션
func (s *EscalationService) endCall(ctx context.Context, recordID, endedReason, transcript string) (IntentResult, error) {
	needsEscalation := false
	rec, err := s.store.Update(recordID, func(r *model.CallRecord) error {
		if r.EndedAt == nil {
			now := s.now()
			r.EndedAt = &now
		}
		if endedReason != "" && r.EndedReason == "" {
			r.EndedReason = endedReason
		}
		if transcript != "" {
			r.FullTranscript = transcript
		}
		needsEscalation = !r.Status.Terminal()
		return nil
	})
	if err != nil {
		return IntentResult{}, err
	}
	if !needsEscalation {
		return IntentResult{Outcome: OutcomeIgnored, Record: rec}, nil
	}

	s.log.Info().Str("record_id", recordID).Str("ended_reason", endedReason).Msg("Call ended without acknowledgment, auto-escalating")
	return s.escalate(ctx, recordID, AutoEscalationReason, true)
}

// escalate - 백업 엔지니어 조회 후 escalated 전이 + 새 발신
//
// 백업이 없으면:
//   - 수동: 상태 유지, OutcomeNoBackup
//   - 자동: failed, OutcomeFailed
//
// 현재 수신자가 이미 백업이면 백업이 없는 것으로 취급 (에스컬레이션 순환 방지)
func (s *EscalationService) escalate(ctx context.Context, recordID, reason string, auto bool) (IntentResult, error) {
	current, err := s.store.Get(recordID)
	if err != nil {
		return IntentResult{}, err
	}

	svc := current.Service
	if svc == "" {
		svc = current.Engineer.PrimaryService()
	}
	backup, found := s.roster.Backup(svc)
	if found && backup.ID == current.Engineer.ID {
		found = false
	}

	outcome := OutcomeIgnored
	rec, err := s.store.Update(recordID, func(r *model.CallRecord) error {
		if r.Status.Terminal() {
			return nil
		}
		if !found {
			if auto {
				r.Status = model.CallFailed
				r.EscalationReason = noBackupReason
				outcome = OutcomeFailed
			} else {
				outcome = OutcomeNoBackup
			}
			return nil
		}
		b := backup
		r.Status = model.CallEscalated
		r.EscalatedTo = &b
		r.EscalationReason = reason
		outcome = OutcomeEscalated
		return nil
	})
	if err != nil {
		return IntentResult{}, err
	}

	trigger := metrics.EscalationManual
	if auto {
		trigger = metrics.EscalationAuto
	}
	log := s.log.With().Str("record_id", recordID).Str("trigger", trigger).Logger()

	result := IntentResult{Outcome: outcome, Record: rec}
	switch outcome {
	case OutcomeIgnored:
		return result, nil
	case OutcomeNoBackup:
		metrics.ObserveEscalation(trigger, string(OutcomeNoBackup))
		log.Warn().Str("service", string(svc)).Msg("No backup engineer available")
		return result, nil
	case OutcomeFailed:
		metrics.ObserveEscalation(trigger, string(OutcomeFailed))
		log.Warn().Str("service", string(svc)).Msg("No backup engineer available for auto-escalation")
		s.notifier.NotifyCall(ctx, rec)
		return result, nil
	}

	metrics.ObserveEscalation(trigger, string(OutcomeEscalated))
	log.Info().Str("backup", backup.Name).Str("reason", reason).Msg("Escalating to backup engineer")
	s.notifier.NotifyCall(ctx, rec)
	result.Backup = &backup

	decision, err := s.store.Decision(recordID)
	if err != nil {
		return result, err
	}
	result.Decision = decision

	call, err := s.caller.InitiateCall(ctx, CallRequest{
		Engineer:     backup,
		Decision:     decision,
		ErrorEventID: rec.ErrorEventID,
		Service:      svc,
	})
	if err != nil {
		// 원래 기록은 escalated로 유지, 백업 기록이 failed로 남음
		log.Error().Err(err).Msg("Failed to call backup engineer")
		return result, nil
	}
	result.BackupCall = &call
	return result, nil
}
