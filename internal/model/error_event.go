// 진단 파이프라인에 입력되는 에러 컨텍스트 구조체를 정의
// handler(Sentry 웹훅), service(enricher), agent(orchestrator) 레이어에서 공통으로 사용

package model

import "time"

// Severity - 에러 심각도
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid - 정의된 심각도인지 확인
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Service - 에러가 발생한 서비스 분류
type Service string

const (
	ServicePayments Service = "payments"
	ServiceAuth     Service = "auth"
	ServiceAPI      Service = "api"
	ServiceUI       Service = "ui"
)

// Services - 알려진 서비스 목록 (엔지니어 디렉토리 검증용)
var Services = []Service{ServicePayments, ServiceAuth, ServiceAPI, ServiceUI}

// Valid - 정의된 서비스인지 확인
func (s Service) Valid() bool {
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}

// ErrorContext - 하나의 에러 이벤트 스냅샷
// 이벤트 수신 시 한 번 생성되고 이후 변경되지 않음
type ErrorContext struct {
	ID            string `json:"id"`
	SourceEventID string `json:"source_event_id"`
	SourceIssueID string `json:"source_issue_id"`

	Service  Service  `json:"service"`
	Severity Severity `json:"severity"`
	Level    string   `json:"level"`

	Title      string `json:"title"`
	Message    string `json:"message"`
	StackTrace string `json:"stack_trace"`

	// 영향 범위
	UserCount          int `json:"user_count"`
	OccurrenceCount    int `json:"occurrence_count"`
	FrequencyLast10Min int `json:"frequency_last_10_min"`

	Permalink string            `json:"permalink,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
