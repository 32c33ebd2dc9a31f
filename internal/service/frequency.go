// 에러 발생 빈도 추적 (슬라이딩 윈도우)
//
// 키: service:errorType
// Record 호출 시 발생 시각을 추가하고 윈도우 밖의 기록을 제거한 뒤 개수를 반환
// Run이 주기적으로 전체 키를 정리하고 비어 있는 키를 삭제하여 메모리를 제한

package service

import (
	"context"
	"sync"
	"time"

	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/rs/zerolog"
)

const (
	DefaultFrequencyWindow    = 10 * time.Minute
	DefaultFrequencyThreshold = 5
	DefaultSweepInterval      = time.Minute
)

// FrequencyResult - Record 결과
type FrequencyResult struct {
	Count             int
	ThresholdExceeded bool
	WindowMinutes     int
	Threshold         int
	Newest            time.Time
	Oldest            time.Time
}

type occurrence struct {
	at      time.Time
	eventID string
}

// FrequencyTracker 구조체 정의
type FrequencyTracker struct {
	mu        sync.Mutex
	windows   map[string][]occurrence
	window    time.Duration
	threshold int
	now       func() time.Time
	log       zerolog.Logger
}

// NewFrequencyTracker - 0 이하 값은 기본값 사용
func NewFrequencyTracker(window time.Duration, threshold int, log zerolog.Logger) *FrequencyTracker {
	if window <= 0 {
		window = DefaultFrequencyWindow
	}
	if threshold <= 0 {
		threshold = DefaultFrequencyThreshold
	}
	return &FrequencyTracker{
		windows:   make(map[string][]occurrence),
		window:    window,
		threshold: threshold,
		now:       time.Now,
		log:       log.With().Str("component", "frequency").Logger(),
	}
}

func frequencyKey(svc model.Service, errorType string) string {
	return string(svc) + ":" + errorType
}

// Record - 발생 1건 기록 후 윈도우 내 개수 반환
func (t *FrequencyTracker) Record(svc model.Service, errorType, eventID string) FrequencyResult {
	key := frequencyKey(svc, errorType)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	kept := prune(append(t.windows[key], occurrence{at: now, eventID: eventID}), now.Add(-t.window))
	t.windows[key] = kept

	return FrequencyResult{
		Count:             len(kept),
		ThresholdExceeded: len(kept) >= t.threshold,
		WindowMinutes:     int(t.window / time.Minute),
		Threshold:         t.threshold,
		Newest:            now,
		Oldest:            kept[0].at,
	}
}

// Frequency - 현재 윈도우 내 개수 (기록하지 않음)
func (t *FrequencyTracker) Frequency(svc model.Service, errorType string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)
	n := 0
	for _, o := range t.windows[frequencyKey(svc, errorType)] {
		if !o.at.Before(cutoff) {
			n++
		}
	}
	return n
}

// Snapshot - 개수가 1 이상인 모든 키
func (t *FrequencyTracker) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)
	out := make(map[string]int, len(t.windows))
	for key, list := range t.windows {
		n := 0
		for _, o := range list {
			if !o.at.Before(cutoff) {
				n++
			}
		}
		if n > 0 {
			out[key] = n
		}
	}
	return out
}

// Sweep - 전체 키 정리, 비어 있는 키 삭제. 삭제된 키 개수 반환
func (t *FrequencyTracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)
	removed := 0
	for key, list := range t.windows {
		kept := prune(list, cutoff)
		if len(kept) == 0 {
			delete(t.windows, key)
			removed++
			continue
		}
		t.windows[key] = kept
	}
	return removed
}

// Run - interval마다 Sweep (ctx 취소 시 종료)
func (t *FrequencyTracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				t.log.Debug().Int("removed_keys", n).Msg("Swept frequency windows")
			}
		}
	}
}

// prune - cutoff 이전 기록 제거 (입력 순서 유지)
func prune(list []occurrence, cutoff time.Time) []occurrence {
	kept := make([]occurrence, 0, len(list))
	for _, o := range list {
		if !o.at.Before(cutoff) {
			kept = append(kept, o)
		}
	}
	return kept
}
