package model

// WebhookEvent - 외부 웹훅으로 전달되는 이벤트 종류
type WebhookEvent string

const (
	WebhookEventDecision WebhookEvent = "decision"
	WebhookEventCall     WebhookEvent = "call"
)

// WebhookHeader - 헤더 키-값 쌍
type WebhookHeader struct {
	Key   string `yaml:"key" json:"key" validate:"required"`
	Value string `yaml:"value" json:"value"`
}

// WebhookConfig - NOTIFY_WEBHOOKS_FILE에서 읽는 외부 웹훅 설정
// Events가 비어 있으면 모든 이벤트를 전달
type WebhookConfig struct {
	Name    string          `yaml:"name" json:"name" validate:"required"`
	URL     string          `yaml:"url" json:"url" validate:"required,url"`
	Method  string          `yaml:"method" json:"method" validate:"omitempty,oneof=POST PUT PATCH"`
	Headers []WebhookHeader `yaml:"headers" json:"-" validate:"dive"`
	Body    string          `yaml:"body" json:"-"`
	Events  []WebhookEvent  `yaml:"events" json:"events" validate:"dive,oneof=decision call"`
}

// Accepts - 이 웹훅이 해당 이벤트를 받는지 확인
func (w WebhookConfig) Accepts(event WebhookEvent) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookConfigListResponse - 목록 조회 응답 (헤더/본문 템플릿은 노출하지 않음)
type WebhookConfigListResponse struct {
	Status string          `json:"status"`
	Data   []WebhookConfig `json:"data"`
}
