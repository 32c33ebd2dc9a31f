package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPName - HTTP 프로브 도구 이름
const HTTPName = "check_http_endpoint"

// HTTPTool - 엔드포인트 상태 코드와 지연 시간 측정
type HTTPTool struct {
	client *http.Client
}

type httpArgs struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// NewHTTPTool - client가 nil이면 리다이렉트를 따르는 기본 클라이언트 사용
// 타임아웃은 Executor의 ctx가 담당
func NewHTTPTool(client *http.Client) *HTTPTool {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTool{client: client}
}

func (h *HTTPTool) Spec() Spec {
	return Spec{
		Name:        HTTPName,
		Description: "Check if an HTTP endpoint is responding and measure latency. Use for health checks of external services.",
		Params: map[string]Param{
			"url":    {Type: "string", Description: "URL to check", Required: true},
			"method": {Type: "string", Description: "HTTP method to use", Enum: []string{http.MethodGet, http.MethodHead, http.MethodPost}},
		},
	}
}

func (h *HTTPTool) Run(ctx context.Context, raw json.RawMessage) (string, bool) {
	var args httpArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Sprintf("Error: invalid arguments: %v", err), false
	}
	if args.URL == "" {
		return "Error: url is required", false
	}
	method := strings.ToUpper(args.Method)
	switch method {
	case "":
		method = http.MethodGet
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		return fmt.Sprintf("Error: unsupported method %q", args.Method), false
	}

	req, err := http.NewRequestWithContext(ctx, method, args.URL, nil)
	if err != nil {
		return fmt.Sprintf("FAILED: %s\nError: %v\nLatency: 0ms", args.URL, err), false
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return fmt.Sprintf("FAILED: %s\nError: %v\nLatency: %dms", args.URL, err, latency), false
	}
	// 연결 재사용을 위해 본문을 비우고 닫음
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	category := statusCategory(resp.StatusCode)
	output := fmt.Sprintf("%s: %s\nStatus: %d\nLatency: %dms", category, args.URL, resp.StatusCode, latency)
	return output, resp.StatusCode < 500
}

func statusCategory(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "OK"
	case code >= 400 && code < 500:
		return "CLIENT_ERROR"
	case code >= 500:
		return "SERVER_ERROR"
	default:
		return "UNKNOWN"
	}
}
