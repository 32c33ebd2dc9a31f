package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kube-rca/oncall-agent/internal/metrics"
	"github.com/kube-rca/oncall-agent/internal/model"
	tmpl "github.com/kube-rca/oncall-agent/internal/template"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// 동시에 전송하는 웹훅 수 상한
const webhookConcurrency = 4

// WebhookDeliveryService - 설정 파일의 외부 웹훅으로 결정/통화 상태를 전송하는 Notifier
//
// Slack 전송과 독립적으로 동작합니다.
// 개별 웹훅 실패 시 로그만 남기고 나머지는 계속 전송합니다.
type WebhookDeliveryService struct {
	configs    []model.WebhookConfig
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// NewWebhookDeliveryService 생성자
func NewWebhookDeliveryService(configs []model.WebhookConfig, timeout time.Duration, log zerolog.Logger) *WebhookDeliveryService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDeliveryService{
		configs:    configs,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "webhook_delivery").Logger(),
		now:        time.Now,
	}
}

// Configs - 등록된 웹훅 목록
func (s *WebhookDeliveryService) Configs() []model.WebhookConfig {
	return append([]model.WebhookConfig(nil), s.configs...)
}

func (s *WebhookDeliveryService) NotifyDecision(ctx context.Context, ec model.ErrorContext, decision model.RoutingDecision) {
	s.Deliver(ctx, tmpl.NotificationData{
		Event:    model.WebhookEventDecision,
		Context:  &ec,
		Decision: &decision,
	})
}

func (s *WebhookDeliveryService) NotifyCall(ctx context.Context, rec model.CallRecord) {
	s.Deliver(ctx, tmpl.NotificationData{
		Event: model.WebhookEventCall,
		Call:  &rec,
	})
}

// Deliver - 이벤트를 받는 모든 웹훅에 렌더링된 body를 전송하고 성공 건수를 반환
func (s *WebhookDeliveryService) Deliver(ctx context.Context, data tmpl.NotificationData) int {
	if data.Timestamp.IsZero() {
		data.Timestamp = s.now()
	}

	results := make([]bool, len(s.configs))
	var g errgroup.Group
	g.SetLimit(webhookConcurrency)
	for i, cfg := range s.configs {
		if !cfg.Accepts(data.Event) {
			continue
		}
		g.Go(func() error {
			body := tmpl.RenderNotification(cfg.Body, data, isJSON(cfg))
			err := s.sendHTTP(ctx, cfg, body)
			metrics.ObserveWebhook(cfg.Name, string(data.Event), err == nil)

			log := s.log.With().Str("webhook", cfg.Name).Str("event", string(data.Event)).Logger()
			if err != nil {
				log.Warn().Err(err).Msg("Failed to deliver webhook")
				return nil
			}
			log.Debug().Msg("Webhook delivered")
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, ok := range results {
		if ok {
			delivered++
		}
	}
	return delivered
}

// sendHTTP - 단일 웹훅으로 HTTP 요청 전송
func (s *WebhookDeliveryService) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	for _, h := range cfg.Headers {
		req.Header.Set(h.Key, h.Value)
	}
	// Content-Type 기본값 (없으면 application/json)
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// isJSON - 명시한 Content-Type이 없거나 JSON이면 값을 이스케이프
func isJSON(cfg model.WebhookConfig) bool {
	for _, h := range cfg.Headers {
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			return strings.Contains(strings.ToLower(h.Value), "json")
		}
	}
	return true
}
