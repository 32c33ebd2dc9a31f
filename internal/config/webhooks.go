// 외부 알림 웹훅 설정 로딩 (NOTIFY_WEBHOOKS_FILE)
//
//	webhooks:
//	  - name: pagerduty-bridge
//	    url: https://hooks.example.com/oncall
//	    method: POST
//	    headers:
//	      - key: Authorization
//	        value: Bearer xxx
//	    events: [decision, call]
//	    body: '{"text": "{{decision.summary}}"}'

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kube-rca/oncall-agent/internal/model"
	"gopkg.in/yaml.v3"
)

type webhooksFile struct {
	Webhooks []model.WebhookConfig `yaml:"webhooks" validate:"dive"`
}

// LoadWebhooks - 경로가 비어 있으면 웹훅 없이 동작
func LoadWebhooks(path string) ([]model.WebhookConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhooks file: %w", err)
	}
	return ParseWebhooks(data)
}

// ParseWebhooks - YAML 파싱, 기본값 적용 후 검증
func ParseWebhooks(data []byte) ([]model.WebhookConfig, error) {
	var file webhooksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse webhooks file: %w", err)
	}

	seen := make(map[string]bool, len(file.Webhooks))
	for i := range file.Webhooks {
		w := &file.Webhooks[i]
		w.Method = strings.ToUpper(strings.TrimSpace(w.Method))
		if w.Method == "" {
			w.Method = "POST"
		}
		if seen[w.Name] {
			return nil, fmt.Errorf("duplicate webhook name %q", w.Name)
		}
		seen[w.Name] = true
	}

	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid webhooks file: %w", err)
	}
	return file.Webhooks, nil
}
