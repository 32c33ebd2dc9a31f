// 외부 Slack API와 통신하는 클라이언트 정의
// Client 레이어에서만 사용하는 구조체 및 Slack 공통 메서드 정의
//
// 환경변수:
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//
// Webhook 대신 Bot Token을 사용하는 이유:
//   - thread_ts 반환: 결정 메시지 전송 후 timestamp를 받아 쓰레드 관리 가능
//   - 스레드 답글: 통화 상태 변경(acknowledged, escalated, failed)을 결정과 같은 스레드로 전송

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kube-rca/oncall-agent/internal/config"
	"github.com/rs/zerolog"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackClient(메시지 메타데이터) 구조체 정의
type SlackClient struct {
	botToken   string
	channelID  string
	apiURL     string
	httpClient *http.Client
	log        zerolog.Logger

	// threadMap: ErrorContext id -> thread_ts 매핑
	//   - 통화 상태 변경을 결정 메시지와 같은 스레드로 보내기 위함
	// 여러 웹훅이 동시에 처리될 수 있으므로 sync.Map 사용
	threadMap sync.Map
}

// SlackMessage(메시지 내용) 구조체 정의
type SlackMessage struct {
	Channel     string            `json:"channel"`               // 메시지를 보낼 채널 ID
	Text        string            `json:"text,omitempty"`        // 메시지 본문
	Attachments []SlackAttachment `json:"attachments,omitempty"` // 색상, 필드
	ThreadTS    string            `json:"thread_ts,omitempty"`   // 쓰레드 메시지의 timestamp
}

// SlackAttachment(메시지 포맷) 구조체 정의
type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

// SlackField(메시지 포맷 필드) 구조체 정의
type SlackField struct {
	Title string `json:"title"` // 필드 제목 (예: "Service")
	Value string `json:"value"` // 필드 값 (예: "payments")
	Short bool   `json:"short"` // true면 좁은 너비 (한 줄에 2개)
}

// SlackResponse(메시지 응답) 구조체 정의
type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// SlackClient 객체 생성
func NewSlackClient(cfg config.SlackConfig, log zerolog.Logger) *SlackClient {
	return &SlackClient{
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		apiURL:    slackPostMessageURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("component", "slack").Logger(),
	}
}

// SlackClient에 Bot Token과 Channel ID가 모두 설정되어 있는지 체크
func (c *SlackClient) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

// Slack API 호출
func (c *SlackClient) send(ctx context.Context, msg SlackMessage) (*SlackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}
	return &slackResp, nil
}

// 결정 메시지 전송 후 thread_ts를 저장
func (c *SlackClient) StoreThreadTS(contextID, threadTS string) {
	c.threadMap.Store(contextID, threadTS)
}

// 통화 상태 메시지 전송 전 thread_ts를 조회
func (c *SlackClient) GetThreadTS(contextID string) (string, bool) {
	val, ok := c.threadMap.Load(contextID)
	if !ok {
		return "", false
	}
	return val.(string), true
}

// 통화가 종료 상태가 되면 thread_ts를 제거
func (c *SlackClient) DeleteThreadTS(contextID string) {
	c.threadMap.Delete(contextID)
}

var (
	slackBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	slackHeading = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	slackCode    = regexp.MustCompile("(?s)```.*?```|`[^`\n]*`")
)

// toSlackMarkdown - LLM이 만든 Markdown을 Slack mrkdwn으로 변환
// 코드 블록과 인라인 코드 안의 내용은 건드리지 않음
func toSlackMarkdown(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range slackCode.FindAllStringIndex(text, -1) {
		b.WriteString(convertMarkdown(text[last:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(convertMarkdown(text[last:]))
	return b.String()
}

func convertMarkdown(s string) string {
	s = slackHeading.ReplaceAllString(s, "**$1**")
	return slackBold.ReplaceAllString(s, "*$1*")
}
