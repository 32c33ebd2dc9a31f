package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/agent"
	"github.com/kube-rca/oncall-agent/internal/client"
	"github.com/kube-rca/oncall-agent/internal/config"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/service"
	"github.com/kube-rca/oncall-agent/internal/store"
	"github.com/kube-rca/oncall-agent/internal/template"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePhone struct {
	mu    sync.Mutex
	calls []model.Engineer
}

func (p *fakePhone) Name() string { return "fake" }

func (p *fakePhone) PlaceCall(ctx context.Context, _ string, engineer model.Engineer, _ model.RoutingDecision) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, engineer)
	return fmt.Sprintf("PC%d", len(p.calls)), nil
}

func (p *fakePhone) placed() []model.Engineer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Engineer(nil), p.calls...)
}

type stubRunner struct{ decision model.RoutingDecision }

// disconnectingRunner - 실행 도중 웹훅 송신자가 연결을 끊은 상황
type disconnectingRunner struct {
	cancel   context.CancelFunc
	decision model.RoutingDecision
}

func (r disconnectingRunner) Run(ctx context.Context, _ model.ErrorContext) (agent.Result, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return agent.Result{}, err
	}
	return agent.Result{Decision: r.decision, DecisionSource: agent.SourceOracle}, nil
}

func (r stubRunner) Run(context.Context, model.ErrorContext) (agent.Result, error) {
	return agent.Result{Decision: r.decision, DecisionSource: agent.SourceFallback}, nil
}

var (
	alice = model.Engineer{ID: "eng-001", Name: "Alice Chen", Phone: "+15551234001", Services: []model.Service{model.ServicePayments}}
	bob   = model.Engineer{ID: "eng-002", Name: "Bob Smith", Phone: "+15551234002", Services: []model.Service{model.ServicePayments}}
	frank = model.Engineer{ID: "eng-006", Name: "Frank Brown", Phone: "+15551234006", Services: []model.Service{model.ServiceUI}}

	callDecision = model.RoutingDecision{
		Action:             model.ActionCall,
		Severity:           model.SeverityCritical,
		Summary:            "payments error: Payment processing failed. 150 users affected.",
		RootCause:          "Gateway is rejecting requests",
		TalkingPoints:      []string{"200 total occurrences", "47 in the last 10 minutes"},
		DiagnosticEvidence: []string{"check_http_endpoint: FAILED"},
	}
)

type testEnv struct {
	router *gin.Engine
	phone  *fakePhone
	calls  *store.CallStore
	caller *service.Caller
	hooks  *hookSink
}

// hookSink - 외부 알림 웹훅 수신 기록
type hookSink struct {
	mu     sync.Mutex
	events []string
}

func (h *hookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	h.mu.Lock()
	h.events = append(h.events, string(body))
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *hookSink) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	return newTestEnvWithRunner(t, stubRunner{decision: callDecision})
}

func newTestEnvWithRunner(t *testing.T, runner service.Runner) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	roster := config.NewDirectory(map[model.Service]config.OnCall{
		model.ServicePayments: {Primary: &alice, Backup: &bob},
		model.ServiceUI:       {Primary: &frank},
	})
	hooks := &hookSink{}
	hookServer := httptest.NewServer(hooks)
	t.Cleanup(hookServer.Close)
	delivery := service.NewWebhookDeliveryService([]model.WebhookConfig{{
		Name:    "sink",
		URL:     hookServer.URL,
		Method:  "POST",
		Headers: []model.WebhookHeader{{Key: "Content-Type", Value: "text/plain"}},
		Body:    "{{event}}:{{call.status}}",
	}}, time.Second, log)
	notifier := service.NewNotifier(delivery)

	phone := &fakePhone{}
	calls := store.NewCallStore(log)
	tracker := service.NewFrequencyTracker(0, 0, log)
	caller := service.NewCaller(calls, phone, notifier, log)
	escalation := service.NewEscalationService(calls, roster, caller, notifier, log)
	incidents := service.NewIncidentService(service.NewEnricher(tracker), runner, roster, caller, notifier, log)

	router := NewRouter(Handlers{
		Sentry:   NewSentryHandler(incidents, log),
		Twilio:   NewTwilioHandler(escalation, client.NewTwiML("https://agent.example.com"), log),
		Vapi:     NewVapiHandler(escalation, log),
		Calls:    NewCallsHandler(calls, tracker),
		Webhooks: NewWebhookHandler(delivery),
	}, log)
	return testEnv{router: router, phone: phone, calls: calls, caller: caller, hooks: hooks}
}

func (e testEnv) call(t *testing.T, engineer model.Engineer) model.CallRecord {
	t.Helper()
	rec, err := e.caller.InitiateCall(context.Background(), service.CallRequest{
		Engineer:     engineer,
		Decision:     callDecision,
		ErrorEventID: "ctx_1",
	})
	require.NoError(t, err)
	return rec
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e testEnv) status(t *testing.T, id string) model.CallStatus {
	t.Helper()
	rec, err := e.calls.Get(id)
	require.NoError(t, err)
	return rec.Status
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/ping", "/", "/health"} {
		w := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

const sentryBody = `{
  "action": "created",
  "data": {"issue": {
    "id": "4321", "title": "Error: Payment processing failed", "level": "error",
    "metadata": {"type": "PaymentError"}, "userCount": 150, "count": "200",
    "tags": [{"key": "service", "value": "payments"}, {"key": "severity", "value": "critical"}]
  }}
}`

func TestSentryWebhookInitiatesCall(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/webhook/sentry", sentryBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.IncidentWebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "call_initiated", resp.Status)
	require.NotNil(t, resp.Call)
	assert.Equal(t, alice.Name, resp.Call.Engineer)
	require.NotNil(t, resp.Decision)
	assert.Equal(t, model.ActionCall, resp.Decision.Action)

	placed := env.phone.placed()
	require.Len(t, placed, 1)
	assert.Equal(t, alice.ID, placed[0].ID)
}

func TestSentryWebhookEdgeCases(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/webhook/sentry", `{not json`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)

	w = env.postJSON("/webhook/sentry", `{"action":"test"}`)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = env.postJSON("/webhook/sentry", strings.Replace(sentryBody, `"created"`, `"resolved"`, 1))
	assert.Contains(t, w.Body.String(), `"status":"ignored"`)
	assert.Contains(t, w.Body.String(), `action=resolved`)

	w = env.do(httptest.NewRequest(http.MethodGet, "/webhook/sentry", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, env.phone.placed())
}

func TestTwilioRecordIDValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/twilio/voice", "/twilio/gather", "/twilio/escalate"} {
		w := env.postForm(path, url.Values{})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		w = env.postForm(path+"?recordId=call_missing", url.Values{"Digits": {"1"}})
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestTwilioVoiceAnswersWithAlert(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.postForm("/twilio/voice?recordId="+rec.ID, url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Gather")
	assert.Contains(t, w.Body.String(), "Alert: critical severity incident detected.")
	assert.Equal(t, model.CallAnswered, env.status(t, rec.ID))
}

func TestTwilioGatherAcknowledge(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)
	env.postForm("/twilio/voice?recordId="+rec.ID, url.Values{})

	w := env.postForm("/twilio/gather?recordId="+rec.ID, url.Values{"Digits": {"1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), template.AcknowledgedText)
	assert.Equal(t, model.CallAcknowledged, env.status(t, rec.ID))

	// 중복 입력
	w = env.postForm("/twilio/gather?recordId="+rec.ID, url.Values{"Digits": {"2"}})
	assert.Contains(t, w.Body.String(), template.CallClosedText)
	assert.Equal(t, model.CallAcknowledged, env.status(t, rec.ID))
	assert.Len(t, env.phone.placed(), 1)

	// 종료 콜백도 무시
	w = env.postForm("/twilio/status", url.Values{"CallSid": {rec.ProviderCallID}, "CallStatus": {"completed"}})
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, model.CallAcknowledged, env.status(t, rec.ID))
	assert.Len(t, env.phone.placed(), 1)
}

func TestTwilioGatherEscalate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.postForm("/twilio/gather?recordId="+rec.ID, url.Values{"Digits": {"2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), template.EscalationScript(bob.Name))
	assert.Equal(t, model.CallEscalated, env.status(t, rec.ID))

	placed := env.phone.placed()
	require.Len(t, placed, 2)
	assert.Equal(t, bob.ID, placed[1].ID)
}

func TestTwilioGatherRepeatAndInvalid(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.postForm("/twilio/gather?recordId="+rec.ID, url.Values{"Digits": {"9"}})
	assert.Contains(t, w.Body.String(), "Press 1 to acknowledge this incident.")

	w = env.postForm("/twilio/gather?recordId="+rec.ID, url.Values{"Digits": {"5"}})
	assert.Contains(t, w.Body.String(), template.InvalidInputText)
	assert.Contains(t, w.Body.String(), "/twilio/voice?recordId="+rec.ID)
	assert.Equal(t, model.CallInitiated, env.status(t, rec.ID))
}

func TestTwilioEscalateWithoutBackup(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, frank)

	w := env.postForm("/twilio/escalate?recordId="+rec.ID, url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), template.NoBackupText)
	assert.Equal(t, model.CallFailed, env.status(t, rec.ID))
}

func TestTwilioStatusCallbacks(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.postForm("/twilio/status", url.Values{"CallSid": {"CA-unknown"}, "CallStatus": {"completed"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	env.postForm("/twilio/status", url.Values{"CallSid": {rec.ProviderCallID}, "CallStatus": {"ringing"}})
	assert.Equal(t, model.CallRinging, env.status(t, rec.ID))

	env.postForm("/twilio/status", url.Values{"CallSid": {rec.ProviderCallID}, "CallStatus": {"no-answer"}})
	stored, err := env.calls.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallEscalated, stored.Status)
	assert.Equal(t, service.AutoEscalationReason, stored.EscalationReason)
	assert.Equal(t, "no-answer", stored.EndedReason)
	assert.Len(t, env.phone.placed(), 2)
}

func vapiFunctionCall(callID, name, params string) string {
	return fmt.Sprintf(`{"message":{"type":"function-call","call":{"id":%q},"functionCall":{"name":%q,"parameters":%s}}}`, callID, name, params)
}

func TestVapiAcknowledgeThenEndOfCall(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.postJSON("/vapi/webhook", `{"message":{"type":"status-update","call":{"id":"`+rec.ProviderCallID+`","status":"in-progress"}}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.CallAnswered, env.status(t, rec.ID))

	w = env.postJSON("/vapi/webhook", vapiFunctionCall(rec.ProviderCallID, client.FuncAcknowledge, `{"note":"looking now"}`))
	require.Equal(t, http.StatusOK, w.Code)
	var result model.VapiFunctionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, template.AcknowledgedReply(alice.Name), result.Result)

	w = env.postJSON("/vapi/webhook", `{"message":{"type":"end-of-call-report","call":{"id":"`+rec.ProviderCallID+`","endedReason":"customer-ended-call"},"artifact":{"transcript":"AI: hello"}}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := env.calls.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallAcknowledged, stored.Status)
	assert.Equal(t, "looking now", stored.AcknowledgmentNote)
	assert.Equal(t, "customer-ended-call", stored.EndedReason)
	assert.Equal(t, "AI: hello", stored.FullTranscript)
	assert.Len(t, env.phone.placed(), 1)
}

func TestVapiFunctionCalls(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	decode := func(w *httptest.ResponseRecorder) string {
		var result model.VapiFunctionResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		return result.Result
	}

	w := env.postJSON("/vapi/webhook", vapiFunctionCall(rec.ProviderCallID, client.FuncMoreDetails, `{"aspect":"impact"}`))
	assert.Equal(t, "The key impacts are: 200 total occurrences. 47 in the last 10 minutes", decode(w))

	w = env.postJSON("/vapi/webhook", vapiFunctionCall(rec.ProviderCallID, "transfer_call", `{}`))
	assert.Equal(t, "Unknown function: transfer_call", decode(w))

	w = env.postJSON("/vapi/webhook", vapiFunctionCall("vapi-unknown", client.FuncAcknowledge, `{}`))
	assert.Equal(t, "Call record not found", decode(w))

	w = env.postJSON("/vapi/webhook", vapiFunctionCall(rec.ProviderCallID, client.FuncEscalate, `{"reason":"unavailable"}`))
	assert.Equal(t, template.EscalatedReply(bob.Name), decode(w))

	stored, err := env.calls.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallEscalated, stored.Status)
	assert.Equal(t, "unavailable", stored.EscalationReason)
	assert.Len(t, env.phone.placed(), 2)
}

func TestVapiEndOfCallAutoEscalates(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.postJSON("/vapi/webhook", `{"message":{"type":"end-of-call-report","call":{"id":"`+rec.ProviderCallID+`","endedReason":"silence-timed-out"}}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.CallEscalated, env.status(t, rec.ID))

	placed := env.phone.placed()
	require.Len(t, placed, 2)
	assert.Equal(t, bob.ID, placed[1].ID)
}

func TestVapiWithoutCallID(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON("/vapi/webhook", `{"message":{"type":"transcript","transcript":"hi"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCallsAPI(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/calls", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list model.CallListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, rec.ID, list.Data[0].ID)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/calls/"+rec.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var detail model.CallDetailEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.NotNil(t, detail.Data)
	require.NotNil(t, detail.Decision)
	assert.Equal(t, callDecision.Summary, detail.Decision.Summary)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/calls/call_missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFrequenciesAPI(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON("/webhook/sentry", sentryBody)
	env.postJSON("/webhook/sentry", sentryBody)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/frequencies", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.FrequencyListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]int{"payments:PaymentError": 2}, resp.Data)
}

func TestWebhookNotifications(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON("/webhook/sentry", sentryBody)
	assert.Equal(t, []string{"decision:"}, env.hooks.received())

	rec := env.call(t, alice)
	env.postForm("/twilio/gather?recordId="+rec.ID, url.Values{"Digits": {"1"}})
	assert.Equal(t, []string{"decision:", "call:acknowledged"}, env.hooks.received())

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/webhooks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "{{event}}")
	var resp model.WebhookConfigListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "sink", resp.Data[0].Name)
}

func TestSentryWebhookSurvivesSenderDisconnect(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnvWithRunner(t, disconnectingRunner{cancel: cancel, decision: callDecision})

	req := httptest.NewRequest(http.MethodPost, "/webhook/sentry", bytes.NewBufferString(sentryBody)).WithContext(reqCtx)
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.IncidentWebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "call_initiated", resp.Status)
	require.NotNil(t, resp.Call)
	assert.Equal(t, model.CallInitiated, resp.Call.Status)
	assert.Equal(t, []model.Engineer{alice}, env.phone.placed())
}

func TestTwilioEscalateSurvivesCallbackDisconnect(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, alice)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/twilio/gather?recordId="+rec.ID,
		strings.NewReader(url.Values{"Digits": {"2"}}.Encode())).WithContext(reqCtx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.CallEscalated, env.status(t, rec.ID))
	assert.Equal(t, []model.Engineer{alice, bob}, env.phone.placed())
}
