package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kube-rca/oncall-agent/internal/model"
	tmpl "github.com/kube-rca/oncall-agent/internal/template"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method      string
	Path        string
	ContentType string
	Auth        string
	Body        string
}

// webhookSink - 받은 요청을 기록하는 테스트 서버
func webhookSink(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Auth:        r.Header.Get("Authorization"),
			Body:        string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestWebhookDeliveryDecision(t *testing.T) {
	srv, received := webhookSink(t, http.StatusOK)
	svc := NewWebhookDeliveryService([]model.WebhookConfig{
		{Name: "bridge", URL: srv.URL + "/hook", Method: "POST",
			Headers: []model.WebhookHeader{{Key: "Authorization", Value: "Bearer abc"}}},
		{Name: "calls-only", URL: srv.URL + "/calls", Method: "PUT", Events: []model.WebhookEvent{model.WebhookEventCall}},
	}, time.Second, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC) }

	ec := model.ErrorContext{ID: "err_1", Service: model.ServicePayments, Title: "Payment failed"}
	svc.NotifyDecision(context.Background(), ec, testDecision)

	reqs := received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/hook", reqs[0].Path)
	assert.Equal(t, "application/json", reqs[0].ContentType)
	assert.Equal(t, "Bearer abc", reqs[0].Auth)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	assert.Equal(t, "decision", body["event"])
	assert.Equal(t, "2025-01-15T10:30:00Z", body["timestamp"])
	assert.Equal(t, "CALL", body["decision"].(map[string]any)["action"])
}

func TestWebhookDeliveryCallUsesTemplate(t *testing.T) {
	srv, received := webhookSink(t, http.StatusAccepted)
	svc := NewWebhookDeliveryService([]model.WebhookConfig{{
		Name:    "text",
		URL:     srv.URL,
		Method:  "POST",
		Headers: []model.WebhookHeader{{Key: "content-type", Value: "text/plain"}},
		Body:    "{{call.engineer}} {{call.status}} \"{{call.reason}}\"",
	}}, time.Second, zerolog.Nop())

	rec := model.CallRecord{ID: "call_1", Engineer: alice, Status: model.CallFailed, EndedReason: "no-answer"}
	svc.NotifyCall(context.Background(), rec)

	reqs := received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "text/plain", reqs[0].ContentType)
	assert.Equal(t, `Alice Chen failed "no-answer"`, reqs[0].Body)
}

func TestWebhookDeliveryContinuesAfterFailure(t *testing.T) {
	bad, _ := webhookSink(t, http.StatusInternalServerError)
	good, received := webhookSink(t, http.StatusOK)
	svc := NewWebhookDeliveryService([]model.WebhookConfig{
		{Name: "bad", URL: bad.URL, Method: "POST"},
		{Name: "unreachable", URL: "http://127.0.0.1:1/hook", Method: "POST"},
		{Name: "good", URL: good.URL, Method: "POST"},
	}, time.Second, zerolog.Nop())

	n := svc.Deliver(context.Background(), tmpl.NotificationData{Event: model.WebhookEventCall})
	assert.Equal(t, 1, n)
	assert.Len(t, received(), 1)
}

func TestNewNotifier(t *testing.T) {
	assert.Equal(t, NopNotifier{}, NewNotifier())
	assert.Equal(t, NopNotifier{}, NewNotifier(nil))

	one := &fakeNotifier{}
	assert.Same(t, one, NewNotifier(nil, one))

	two := &fakeNotifier{}
	n := NewNotifier(one, two)
	n.NotifyDecision(context.Background(), model.ErrorContext{}, testDecision)
	n.NotifyCall(context.Background(), model.CallRecord{ID: "call_1"})

	for _, f := range []*fakeNotifier{one, two} {
		assert.Len(t, f.decisions, 1)
		require.Len(t, f.calls, 1)
		assert.Equal(t, "call_1", f.calls[0].ID)
	}
}
