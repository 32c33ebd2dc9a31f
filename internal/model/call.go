// 온콜 전화 발신 1건의 상태를 정의
// store(CallStore), service(escalation), handler(twilio, vapi) 레이어에서 공통으로 사용

package model

import "time"

// CallStatus - 전화 상태
//
//	initiated → ringing → answered → {acknowledged | escalated | failed}
type CallStatus string

const (
	CallInitiated    CallStatus = "initiated"
	CallRinging      CallStatus = "ringing"
	CallAnswered     CallStatus = "answered"
	CallAcknowledged CallStatus = "acknowledged"
	CallEscalated    CallStatus = "escalated"
	CallFailed       CallStatus = "failed"
)

// Terminal - 더 이상 전이가 일어나지 않는 상태인지 확인
func (s CallStatus) Terminal() bool {
	return s == CallAcknowledged || s == CallEscalated || s == CallFailed
}

// CallRecord - 전화 발신 1건
type CallRecord struct {
	ID string `json:"id"`

	// ProviderCallID: 통신사(Twilio CallSid, Vapi call id)가 발신을 수락한 뒤 한 번만 설정됨
	ProviderCallID string `json:"provider_call_id,omitempty"`

	ErrorEventID string     `json:"error_event_id"`
	Service      Service    `json:"service"`
	Engineer     Engineer   `json:"engineer"`
	Status       CallStatus `json:"status"`

	InitiatedAt        time.Time  `json:"initiated_at"`
	AnsweredAt         *time.Time `json:"answered_at,omitempty"`
	AcknowledgedAt     *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgmentNote string     `json:"acknowledgment_note,omitempty"`

	EscalatedTo      *Engineer `json:"escalated_to,omitempty"`
	EscalationReason string    `json:"escalation_reason,omitempty"`

	EndedAt        *time.Time `json:"ended_at,omitempty"`
	EndedReason    string     `json:"ended_reason,omitempty"`
	FullTranscript string     `json:"full_transcript,omitempty"`
}
