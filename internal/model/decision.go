package model

import "time"

// RoutingAction - 최종 라우팅 액션
type RoutingAction string

const (
	ActionCall    RoutingAction = "CALL"
	ActionMonitor RoutingAction = "MONITOR"
	ActionLog     RoutingAction = "LOG"
)

// Valid - 정의된 액션인지 확인
func (a RoutingAction) Valid() bool {
	return a == ActionCall || a == ActionMonitor || a == ActionLog
}

// AnalysisResult - 1차 분석 결과
// SuggestedDiagnostics 길이는 진단 루프 길이의 상한으로도 사용됨
type AnalysisResult struct {
	InitialSeverity      Severity `json:"initialSeverity" validate:"required,oneof=critical high medium low"`
	Hypothesis           string   `json:"hypothesis" validate:"required"`
	SuggestedDiagnostics []string `json:"suggestedDiagnostics"`
}

// DiagnosticResult - 도구 1회 실행 기록
type DiagnosticResult struct {
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// RoutingDecision - 진단 실행의 최종 판단 (생성 이후 변경 불가)
type RoutingDecision struct {
	Action             RoutingAction `json:"action" validate:"required,oneof=CALL MONITOR LOG"`
	Severity           Severity      `json:"severity" validate:"required,oneof=critical high medium low"`
	Summary            string        `json:"summary" validate:"required"`
	RootCause          string        `json:"rootCause"`
	TalkingPoints      []string      `json:"talkingPoints"`
	DiagnosticEvidence []string      `json:"diagnosticEvidence"`
}
