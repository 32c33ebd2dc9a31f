// Sentry 이슈 웹훅 → ErrorContext 변환
//
// 처리 흐름:
//  1. service 태그 (없으면 제목 키워드로 추론)
//  2. severity 태그 (없으면 level로 추론)
//  3. 예외별 스택 트레이스 포맷 (예외당 마지막 10개 프레임)
//  4. (service, 에러 타입) 빈도 기록 → FrequencyLast10Min

package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kube-rca/oncall-agent/internal/model"
)

const maxStackFrames = 10

// Enricher 구조체 정의
type Enricher struct {
	frequency *FrequencyTracker
	now       func() time.Time
}

func NewEnricher(frequency *FrequencyTracker) *Enricher {
	return &Enricher{frequency: frequency, now: time.Now}
}

// Enrich - issue가 없으면 error
func (e *Enricher) Enrich(payload model.SentryWebhook) (model.ErrorContext, error) {
	issue := payload.Data.Issue
	if issue == nil {
		return model.ErrorContext{}, fmt.Errorf("sentry payload has no issue")
	}
	event := payload.Data.Event

	tags := make(map[string]string, len(issue.Tags))
	for _, t := range issue.Tags {
		if _, seen := tags[t.Key]; !seen {
			tags[t.Key] = t.Value
		}
	}

	svc := model.Service(strings.ToLower(tags["service"]))
	if !svc.Valid() {
		svc = inferService(issue.Title)
	}
	severity := model.Severity(strings.ToLower(tags["severity"]))
	if !severity.Valid() {
		severity = inferSeverity(issue.Level)
	}

	errorType := issue.Metadata.Type
	if errorType == "" {
		errorType = issue.Type
	}
	freq := e.frequency.Record(svc, errorType, issue.ID)

	message := issue.Metadata.Value
	if message == "" {
		message = issue.Title
	}
	occurrences, _ := strconv.Atoi(issue.Count)

	ec := model.ErrorContext{
		ID:                 "ctx_" + uuid.NewString(),
		SourceIssueID:      issue.ID,
		Service:            svc,
		Severity:           severity,
		Level:              issue.Level,
		Title:              issue.Title,
		Message:            message,
		UserCount:          issue.UserCount,
		OccurrenceCount:    occurrences,
		FrequencyLast10Min: freq.Count,
		Permalink:          issue.Permalink,
		Tags:               tags,
		Timestamp:          e.now(),
	}
	if ts, err := time.Parse(time.RFC3339, issue.LastSeen); err == nil {
		ec.Timestamp = ts
	}
	if event != nil {
		ec.SourceEventID = event.EventID
		ec.StackTrace = formatStackTrace(event)
	}
	return ec, nil
}

func formatStackTrace(event *model.SentryEvent) string {
	if event.Exception == nil {
		return ""
	}

	traces := make([]string, 0, len(event.Exception.Values))
	for _, exc := range event.Exception.Values {
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s", exc.Type, exc.Value)
		if exc.Stacktrace != nil {
			frames := exc.Stacktrace.Frames
			if len(frames) > maxStackFrames {
				frames = frames[len(frames)-maxStackFrames:]
			}
			for _, f := range frames {
				fn := f.Function
				if fn == "" {
					fn = "anonymous"
				}
				fmt.Fprintf(&b, "\n  at %s (%s:%d:%d)", fn, f.Filename, f.Lineno, f.Colno)
			}
		}
		traces = append(traces, b.String())
	}
	return strings.Join(traces, "\n\n")
}

var serviceKeywords = []struct {
	svc      model.Service
	keywords []string
}{
	{model.ServicePayments, []string{"payment", "stripe", "transaction"}},
	{model.ServiceAuth, []string{"auth", "login", "session"}},
	{model.ServiceAPI, []string{"api", "timeout", "request"}},
}

func inferService(title string) model.Service {
	lower := strings.ToLower(title)
	for _, entry := range serviceKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.svc
			}
		}
	}
	return model.ServiceUI
}

func inferSeverity(level string) model.Severity {
	switch level {
	case "fatal":
		return model.SeverityCritical
	case "error":
		return model.SeverityHigh
	case "warning":
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
