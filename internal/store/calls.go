// 전화 기록 저장소 (프로세스 메모리)
//
// 인덱스 2개:
//   - 내부 record id → 기록
//   - 통신사 call id → record id (AssignProviderID 이후에만 조회 가능)
//
// 모든 변경은 하나의 뮤텍스 안에서 수행되므로 상태 확인과 쓰기가 원자적임

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound           = errors.New("call record not found")
	ErrDuplicateID        = errors.New("call record already exists")
	ErrProviderIDAssigned = errors.New("provider call id already assigned")
)

type entry struct {
	record   model.CallRecord
	decision model.RoutingDecision
}

// CallStore 구조체 정의
type CallStore struct {
	mu         sync.Mutex
	records    map[string]*entry
	byProvider map[string]string
	log        zerolog.Logger
}

func NewCallStore(log zerolog.Logger) *CallStore {
	return &CallStore{
		records:    make(map[string]*entry),
		byProvider: make(map[string]string),
		log:        log.With().Str("component", "call_store").Logger(),
	}
}

// Create - 새 기록과 그 기록을 만든 RoutingDecision 저장
// ProviderCallID는 무시하고 AssignProviderID로만 설정함
func (s *CallStore) Create(rec model.CallRecord, decision model.RoutingDecision) error {
	if rec.ID == "" {
		return fmt.Errorf("call record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	rec.ProviderCallID = ""
	s.records[rec.ID] = &entry{record: clone(rec), decision: decision}
	return nil
}

// Get - record id로 조회
func (s *CallStore) Get(id string) (model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[id]
	if !ok {
		return model.CallRecord{}, ErrNotFound
	}
	return clone(e.record), nil
}

// Decision - 기록에 연결된 RoutingDecision
func (s *CallStore) Decision(id string) (model.RoutingDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[id]
	if !ok {
		return model.RoutingDecision{}, ErrNotFound
	}
	return e.decision, nil
}

// GetByProviderID - 통신사 call id로 조회
// id가 아직 할당되지 않았으면 ErrNotFound
func (s *CallStore) GetByProviderID(providerID string) (model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byProvider[providerID]
	if !ok {
		return model.CallRecord{}, ErrNotFound
	}
	return clone(s.records[id].record), nil
}

// AssignProviderID - 통신사가 발신을 수락한 뒤 한 번만 호출
func (s *CallStore) AssignProviderID(id, providerID string) error {
	if providerID == "" {
		return fmt.Errorf("provider call id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if e.record.ProviderCallID != "" {
		return fmt.Errorf("%w: %s", ErrProviderIDAssigned, id)
	}
	if owner, taken := s.byProvider[providerID]; taken && owner != id {
		return fmt.Errorf("%w: %s belongs to %s", ErrProviderIDAssigned, providerID, owner)
	}
	e.record.ProviderCallID = providerID
	s.byProvider[providerID] = id
	return nil
}

// Update - 기록 1건을 원자적으로 변경
// fn이 error를 반환하면 변경 사항은 버려짐. fn 안에서 I/O를 하지 않아야 함
func (s *CallStore) Update(id string, fn func(*model.CallRecord) error) (model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[id]
	if !ok {
		return model.CallRecord{}, ErrNotFound
	}

	draft := clone(e.record)
	if err := fn(&draft); err != nil {
		return clone(e.record), err
	}
	// 식별자는 변경 불가
	draft.ID = e.record.ID
	draft.ProviderCallID = e.record.ProviderCallID
	e.record = draft
	return clone(draft), nil
}

// Active - 아직 종료 상태가 아닌 기록 (시작 시각 순)
func (s *CallStore) Active() []model.CallRecord {
	return s.list(func(r model.CallRecord) bool { return !r.Status.Terminal() })
}

// All - 전체 기록 (시작 시각 순)
func (s *CallStore) All() []model.CallRecord {
	return s.list(func(model.CallRecord) bool { return true })
}

func (s *CallStore) list(keep func(model.CallRecord) bool) []model.CallRecord {
	s.mu.Lock()
	out := make([]model.CallRecord, 0, len(s.records))
	for _, e := range s.records {
		if keep(e.record) {
			out = append(out, clone(e.record))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	return out
}

// PruneTerminal - cutoff 이전에 끝난 종료 상태 기록 삭제, 삭제 건수 반환
func (s *CallStore) PruneTerminal(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.records {
		if !e.record.Status.Terminal() {
			continue
		}
		finished := e.record.InitiatedAt
		if e.record.EndedAt != nil {
			finished = *e.record.EndedAt
		}
		if finished.Before(cutoff) {
			if e.record.ProviderCallID != "" {
				delete(s.byProvider, e.record.ProviderCallID)
			}
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// RunJanitor - retention이 지난 종료 기록을 주기적으로 정리 (ctx 취소 시 종료)
func (s *CallStore) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.PruneTerminal(now.Add(-retention)); n > 0 {
				s.log.Info().Int("removed", n).Msg("Pruned terminal call records")
			}
		}
	}
}

// clone - 포인터 필드까지 복사해 호출자가 저장소 내부 상태를 공유하지 않도록 함
func clone(r model.CallRecord) model.CallRecord {
	out := r
	out.AnsweredAt = copyTime(r.AnsweredAt)
	out.AcknowledgedAt = copyTime(r.AcknowledgedAt)
	out.EndedAt = copyTime(r.EndedAt)
	if r.EscalatedTo != nil {
		eng := *r.EscalatedTo
		out.EscalatedTo = &eng
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
