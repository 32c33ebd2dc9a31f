// 온콜 엔지니어 발신
//
// 처리 흐름:
//  1. CallRecord 생성 (initiated) + RoutingDecision과 함께 저장
//  2. Telephony.PlaceCall로 통신사에 발신 요청
//     - 실패: 기록을 failed로 바꾸고 ErrCallRejected 반환
//  3. 통신사 call id 할당 (이후부터 통신사 이벤트로 조회 가능)

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/store"
	"github.com/rs/zerolog"
)

var (
	ErrNoEngineer   = errors.New("no on-call engineer for service")
	ErrCallRejected = errors.New("telephony provider rejected the call")
)

// Telephony - 통신사 발신 (client.TwilioCaller, client.VapiCaller가 구현)
type Telephony interface {
	Name() string
	PlaceCall(ctx context.Context, recordID string, engineer model.Engineer, decision model.RoutingDecision) (providerCallID string, err error)
}

// Roster - 서비스별 온콜 엔지니어 조회 (config.Directory가 구현)
type Roster interface {
	Primary(svc model.Service) (model.Engineer, bool)
	Backup(svc model.Service) (model.Engineer, bool)
}

// Notifier - 결정/통화 상태 알림 (Slack, 외부 웹훅)
type Notifier interface {
	NotifyDecision(ctx context.Context, ec model.ErrorContext, decision model.RoutingDecision)
	NotifyCall(ctx context.Context, rec model.CallRecord)
}

// CallRequest - 발신 요청
type CallRequest struct {
	Engineer     model.Engineer
	Decision     model.RoutingDecision
	ErrorEventID string
	Service      model.Service
}

// Caller 구조체 정의
type Caller struct {
	store    *store.CallStore
	phone    Telephony
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewCaller(calls *store.CallStore, phone Telephony, notifier Notifier, log zerolog.Logger) *Caller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Caller{
		store:    calls,
		phone:    phone,
		notifier: notifier,
		log:      log.With().Str("component", "caller").Str("provider", phone.Name()).Logger(),
		now:      time.Now,
	}
}

// InitiateCall - 발신 1건
// 통신사 거절 시에도 failed 상태의 기록을 함께 반환함
func (c *Caller) InitiateCall(ctx context.Context, req CallRequest) (model.CallRecord, error) {
	svc := req.Service
	if svc == "" {
		svc = req.Engineer.PrimaryService()
	}

	rec := model.CallRecord{
		ID:           "call_" + uuid.NewString(),
		ErrorEventID: req.ErrorEventID,
		Service:      svc,
		Engineer:     req.Engineer,
		Status:       model.CallInitiated,
		InitiatedAt:  c.now(),
	}
	if err := c.store.Create(rec, req.Decision); err != nil {
		return rec, fmt.Errorf("failed to store call record: %w", err)
	}

	log := c.log.With().Str("record_id", rec.ID).Str("engineer", req.Engineer.ID).Logger()

	providerID, err := c.phone.PlaceCall(ctx, rec.ID, req.Engineer, req.Decision)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initiate call")
		failed, _ := c.store.Update(rec.ID, func(r *model.CallRecord) error {
			now := c.now()
			r.Status = model.CallFailed
			r.EndedAt = &now
			r.EndedReason = "initiation-failed"
			return nil
		})
		c.notifier.NotifyCall(ctx, failed)
		return failed, fmt.Errorf("%w: %v", ErrCallRejected, err)
	}

	if err := c.store.AssignProviderID(rec.ID, providerID); err != nil {
		// 같은 call id가 다시 할당되는 경우는 통신사 응답 이상
		log.Error().Err(err).Str("provider_call_id", providerID).Msg("Failed to index provider call id")
	}

	log.Info().
		Str("provider_call_id", providerID).
		Str("name", req.Engineer.Name).
		Msg("Call initiated")

	return c.store.Get(rec.ID)
}
