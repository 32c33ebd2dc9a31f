// Twilio 발신 클라이언트와 TwiML 응답 생성
//
// 환경변수:
//   - TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN: REST API 인증
//   - TWILIO_PHONE_NUMBER: 발신 번호
//   - BASE_URL: Twilio가 콜백할 이 서버의 외부 주소
//
// 통화 흐름:
//  1. CreateCall (Url=/twilio/voice?recordId=, StatusCallback=/twilio/status)
//  2. 연결되면 /twilio/voice가 경보 스크립트 + <Gather> 반환
//  3. 키 입력은 /twilio/gather, 입력이 없으면 /twilio/escalate로 리다이렉트

package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kube-rca/oncall-agent/internal/config"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/template"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

const (
	twilioVoice    = "alice"
	twilioLanguage = "en-US"
	gatherTimeout  = "15"
)

// callCreator - Twilio REST Calls 리소스 (테스트에서 대체)
type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// TwilioCaller 구조체 정의
type TwilioCaller struct {
	calls       callCreator
	from        string
	baseURL     string
	ringTimeout int
}

func NewTwilioCaller(cfg config.TwilioConfig, baseURL string) (*TwilioCaller, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.PhoneNumber == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN or TWILIO_PHONE_NUMBER")
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioCaller(rest.Api, cfg.PhoneNumber, baseURL, cfg.RingTimeout), nil
}

func newTwilioCaller(calls callCreator, from, baseURL string, ringTimeout int) *TwilioCaller {
	if ringTimeout <= 0 {
		ringTimeout = 30
	}
	return &TwilioCaller{calls: calls, from: from, baseURL: baseURL, ringTimeout: ringTimeout}
}

func (c *TwilioCaller) Name() string { return config.ProviderTwilio }

// PlaceCall - 발신 요청 후 CallSid 반환
func (c *TwilioCaller) PlaceCall(_ context.Context, recordID string, engineer model.Engineer, _ model.RoutingDecision) (string, error) {
	params := &api.CreateCallParams{}
	params.SetTo(engineer.Phone)
	params.SetFrom(c.from)
	params.SetUrl(recordURL(c.baseURL, "/twilio/voice", recordID))
	params.SetMethod("POST")
	params.SetStatusCallback(c.baseURL + "/twilio/status")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	params.SetStatusCallbackMethod("POST")
	params.SetTimeout(c.ringTimeout)

	call, err := c.calls.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("twilio create call failed: %w", err)
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return "", fmt.Errorf("twilio returned no call sid")
	}
	return *call.Sid, nil
}

func recordURL(baseURL, path, recordID string) string {
	return baseURL + path + "?recordId=" + url.QueryEscape(recordID)
}

// TwiML - TwiML 응답 생성기 (handler 레이어에서 사용)
type TwiML struct {
	baseURL string
}

func NewTwiML(baseURL string) *TwiML {
	return &TwiML{baseURL: baseURL}
}

func say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: text, Voice: twilioVoice, Language: twilioLanguage}
}

// Alert - 경보 스크립트 + 키 입력 대기
// 입력이 없으면 /twilio/escalate로 넘어감
func (t *TwiML) Alert(decision model.RoutingDecision, recordID string) (string, error) {
	gather := &twiml.VoiceGather{
		Action:        recordURL(t.baseURL, "/twilio/gather", recordID),
		Method:        "POST",
		NumDigits:     "1",
		Timeout:       gatherTimeout,
		InnerElements: []twiml.Element{say(template.KeyPrompt)},
	}
	return twiml.Voice([]twiml.Element{
		say(template.AlertScript(decision)),
		gather,
		say(template.NoInputScript),
		&twiml.VoiceRedirect{Url: recordURL(t.baseURL, "/twilio/escalate", recordID), Method: "POST"},
	})
}

// Hangup - 안내 후 종료 (acknowledge, 백업 없음, 이미 처리된 통화)
func (t *TwiML) Hangup(text string) (string, error) {
	return twiml.Voice([]twiml.Element{say(text), &twiml.VoiceHangup{}})
}

// InvalidInput - 안내 후 경보 처음으로
func (t *TwiML) InvalidInput(recordID string) (string, error) {
	return twiml.Voice([]twiml.Element{
		say(template.InvalidInputText),
		&twiml.VoiceRedirect{Url: recordURL(t.baseURL, "/twilio/voice", recordID), Method: "POST"},
	})
}
