// Vapi 음성 어시스턴트 발신 클라이언트
//
// 환경변수:
//   - VAPI_API_KEY: Bearer 토큰
//   - VAPI_PHONE_NUMBER_ID: 발신 번호 ID
//   - VAPI_BASE_URL: API 주소 (기본 https://api.vapi.ai)
//
// 어시스턴트 설정은 RoutingDecision으로 매 발신마다 새로 만듦
// 엔지니어 응답은 함수 호출(function-call)로 /vapi/webhook에 전달됨

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kube-rca/oncall-agent/internal/config"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/template"
	"github.com/kube-rca/oncall-agent/internal/tool"
)

// 어시스턴트가 호출할 수 있는 함수 이름
const (
	FuncAcknowledge = "acknowledge_incident"
	FuncEscalate    = "escalate_to_backup"
	FuncMoreDetails = "get_more_details"
)

// AssistantFunctions - 어시스턴트에 노출하는 함수 3개
var AssistantFunctions = []tool.Spec{
	{
		Name:        FuncAcknowledge,
		Description: "Called when the engineer acknowledges they will handle the incident. Use this when they say things like 'I got it', 'I'll handle it', 'acknowledged', 'on it', etc.",
		Params: map[string]tool.Param{
			"note": {Type: "string", Description: "Optional note from the engineer about how they plan to address the issue"},
		},
	},
	{
		Name:        FuncEscalate,
		Description: "Called when the engineer wants to escalate to the backup on-call engineer. Use this when they say things like 'escalate', 'pass it on', 'get the backup', 'I can't handle this', etc.",
		Params: map[string]tool.Param{
			"reason": {Type: "string", Description: "Reason for escalation (e.g., 'unavailable', 'out of expertise', 'need additional help')"},
		},
	},
	{
		Name:        FuncMoreDetails,
		Description: "Called when the engineer wants more diagnostic details about the incident. Use this when they ask questions like 'what else do you know?', 'give me more details', 'what diagnostics did you run?', etc.",
		Params: map[string]tool.Param{
			"aspect": {Type: "string", Description: "Specific aspect they want details about", Enum: []string{"diagnostics", "impact", "timeline", "all"}},
		},
	},
}

// VapiCaller 구조체 정의
type VapiCaller struct {
	apiKey        string
	phoneNumberID string
	baseURL       string
	serverURL     string
	httpClient    *http.Client
}

// VapiCallRequest - POST /call/phone 요청 본문
type VapiCallRequest struct {
	PhoneNumberID string        `json:"phoneNumberId"`
	Customer      VapiCustomer  `json:"customer"`
	Assistant     VapiAssistant `json:"assistant"`
}

type VapiCustomer struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

type VapiAssistant struct {
	Name               string          `json:"name"`
	Model              VapiModel       `json:"model"`
	Voice              VapiVoice       `json:"voice"`
	Transcriber        VapiTranscriber `json:"transcriber"`
	FirstMessage       string          `json:"firstMessage"`
	MaxDurationSeconds int             `json:"maxDurationSeconds"`
	ServerURL          string          `json:"serverUrl,omitempty"`
	Metadata           map[string]any  `json:"metadata,omitempty"`
}

type VapiModel struct {
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	Temperature  float64        `json:"temperature"`
	SystemPrompt string         `json:"systemPrompt"`
	Functions    []VapiFunction `json:"functions"`
}

type VapiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  VapiParameters `json:"parameters"`
}

type VapiParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]VapiProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

type VapiProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

type VapiVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type VapiTranscriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// VapiCallResponse - 발신 응답 (id만 사용)
type VapiCallResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func NewVapiCaller(cfg config.VapiConfig, serverBaseURL string) (*VapiCaller, error) {
	if cfg.APIKey == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("missing VAPI_API_KEY or VAPI_PHONE_NUMBER_ID")
	}
	return &VapiCaller{
		apiKey:        cfg.APIKey,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       cfg.BaseURL,
		serverURL:     serverBaseURL + "/vapi/webhook",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *VapiCaller) Name() string { return config.ProviderVapi }

// PlaceCall - 어시스턴트 설정과 함께 발신 요청 후 Vapi call id 반환
func (c *VapiCaller) PlaceCall(ctx context.Context, recordID string, engineer model.Engineer, decision model.RoutingDecision) (string, error) {
	payload, err := json.Marshal(c.buildRequest(recordID, engineer, decision))
	if err != nil {
		return "", fmt.Errorf("failed to marshal vapi request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call/phone", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to vapi: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vapi API error: %d - %s", resp.StatusCode, string(body))
	}

	var call VapiCallResponse
	if err := json.Unmarshal(body, &call); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if call.ID == "" {
		return "", fmt.Errorf("vapi returned no call id")
	}
	return call.ID, nil
}

func (c *VapiCaller) buildRequest(recordID string, engineer model.Engineer, decision model.RoutingDecision) VapiCallRequest {
	data := template.CallDataFromDecision(decision, engineer)
	return VapiCallRequest{
		PhoneNumberID: c.phoneNumberID,
		Customer:      VapiCustomer{Number: engineer.Phone, Name: engineer.Name},
		Assistant: VapiAssistant{
			Name: fmt.Sprintf("SRE Alert - %s", decision.Severity),
			Model: VapiModel{
				Provider:     "anthropic",
				Model:        "claude-sonnet-4-20250514",
				Temperature:  0.3,
				SystemPrompt: template.RenderCall(template.AssistantPrompt, data),
				Functions:    vapiFunctions(AssistantFunctions),
			},
			Voice:              VapiVoice{Provider: "11labs", VoiceID: "EXAVITQu4vr4xnSDxMaL"},
			Transcriber:        VapiTranscriber{Provider: "deepgram", Model: "nova-2", Language: "en"},
			FirstMessage:       template.RenderCall(template.FirstMessage, data),
			MaxDurationSeconds: 300,
			ServerURL:          c.serverURL,
			Metadata:           map[string]any{"recordId": recordID},
		},
	}
}

func vapiFunctions(specs []tool.Spec) []VapiFunction {
	out := make([]VapiFunction, 0, len(specs))
	for _, s := range specs {
		params := VapiParameters{Type: "object", Properties: make(map[string]VapiProperty, len(s.Params))}
		for name, p := range s.Params {
			params.Properties[name] = VapiProperty{Type: p.Type, Description: p.Description, Enum: p.Enum}
			if p.Required {
				params.Required = append(params.Required, name)
			}
		}
		out = append(out, VapiFunction{Name: s.Name, Description: s.Description, Parameters: params})
	}
	return out
}
