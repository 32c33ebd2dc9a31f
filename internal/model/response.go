package model

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// IncidentWebhookResponse - Sentry 웹훅 응답
// Status: call_initiated, monitor, log, ignored, ok, error
type IncidentWebhookResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Decision *RoutingDecision `json:"decision,omitempty"`
	Call     *CallSummary     `json:"callRecord,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// CallSummary - 웹훅 응답에 포함되는 발신 요약
type CallSummary struct {
	ID       string     `json:"id"`
	Engineer string     `json:"engineer"`
	Status   CallStatus `json:"status"`
}

// CallListResponse - 진행 중인 전화 목록 응답
type CallListResponse struct {
	Status string       `json:"status"`
	Data   []CallRecord `json:"data"`
}

// CallDetailEnvelope - 전화 상세 응답
type CallDetailEnvelope struct {
	Status   string           `json:"status"`
	Data     *CallRecord      `json:"data"`
	Decision *RoutingDecision `json:"decision,omitempty"`
}

// FrequencyListResponse - 빈도 윈도우 조회 응답
type FrequencyListResponse struct {
	Status string         `json:"status"`
	Data   map[string]int `json:"data"`
}

// HealthResponse - GET /health 응답
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}
