// 환경변수 기반 설정 로딩
//
// .env 파일이 있으면 먼저 로드하고 (없으면 무시), 이후 환경변수를 읽음
// 시간 값은 time.ParseDuration 형식 (예: 10s, 10m)

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	GenAI     GenAIConfig
	Telephony TelephonyConfig
	Twilio    TwilioConfig
	Vapi      VapiConfig
	Slack     SlackConfig
	Notify    NotifyConfig
	Tools     ToolsConfig
	Frequency FrequencyConfig
	Calls     CallsConfig
}

type ServerConfig struct {
	Port    string
	BaseURL string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type GenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TelephonyConfig - 사용할 통신사 (twilio: 키패드 입력, vapi: 음성 어시스턴트)
type TelephonyConfig struct {
	Provider string
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	RingTimeout int
}

type VapiConfig struct {
	APIKey        string
	PhoneNumberID string
	BaseURL       string
}

type SlackConfig struct {
	BotToken  string
	ChannelID string
}

// NotifyConfig - 외부 웹훅 알림 (WebhooksFile이 비어 있으면 비활성)
type NotifyConfig struct {
	WebhooksFile string
	Timeout      time.Duration
}

type ToolsConfig struct {
	Timeout       time.Duration
	PythonBin     string
	HealthBaseURL string
}

type FrequencyConfig struct {
	Window        time.Duration
	Threshold     int
	SweepInterval time.Duration
}

// CallsConfig - Retention이 0이면 전화 기록을 프로세스 종료 시까지 보관
type CallsConfig struct {
	Retention     time.Duration
	EngineersFile string
}

const (
	ProviderTwilio = "twilio"
	ProviderVapi   = "vapi"
)

func Load() (Config, error) {
	// .env 파일은 선택 사항
	_ = godotenv.Load()

	var errs []string
	duration := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(getenv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s", key))
		}
		return d
	}
	integer := func(key, fallback string) int {
		n, err := strconv.Atoi(getenv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s", key))
		}
		return n
	}

	cfg := Config{
		Server: ServerConfig{
			Port:    getenv("PORT", "8080"),
			BaseURL: strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Pretty: getenv("LOG_PRETTY", "false") == "true",
		},
		GenAI: GenAIConfig{
			APIKey:  os.Getenv("AI_API_KEY"),
			Model:   getenv("AI_MODEL", "gemini-2.5-flash"),
			Timeout: duration("AI_TIMEOUT", "60s"),
		},
		Telephony: TelephonyConfig{
			Provider: strings.ToLower(getenv("TELEPHONY_PROVIDER", ProviderTwilio)),
		},
		Twilio: TwilioConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
			RingTimeout: integer("TWILIO_RING_TIMEOUT", "30"),
		},
		Vapi: VapiConfig{
			APIKey:        os.Getenv("VAPI_API_KEY"),
			PhoneNumberID: os.Getenv("VAPI_PHONE_NUMBER_ID"),
			BaseURL:       strings.TrimRight(getenv("VAPI_BASE_URL", "https://api.vapi.ai"), "/"),
		},
		Slack: SlackConfig{
			BotToken:  os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		},
		Notify: NotifyConfig{
			WebhooksFile: os.Getenv("NOTIFY_WEBHOOKS_FILE"),
			Timeout:      duration("NOTIFY_WEBHOOK_TIMEOUT", "10s"),
		},
		Tools: ToolsConfig{
			Timeout:       duration("TOOL_TIMEOUT", "10s"),
			PythonBin:     getenv("TOOL_PYTHON_BIN", "python3"),
			HealthBaseURL: strings.TrimRight(getenv("HEALTH_BASE_URL", "http://localhost:3000"), "/"),
		},
		Frequency: FrequencyConfig{
			Window:        duration("FREQUENCY_WINDOW", "10m"),
			Threshold:     integer("FREQUENCY_THRESHOLD", "5"),
			SweepInterval: duration("FREQUENCY_SWEEP", "1m"),
		},
		Calls: CallsConfig{
			Retention:     duration("CALL_RETENTION", "0s"),
			EngineersFile: os.Getenv("ENGINEERS_FILE"),
		},
	}

	if cfg.Telephony.Provider != ProviderTwilio && cfg.Telephony.Provider != ProviderVapi {
		errs = append(errs, fmt.Sprintf("unknown TELEPHONY_PROVIDER %q", cfg.Telephony.Provider))
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(errs, ", "))
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
