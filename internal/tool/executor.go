// 진단 도구 실행기
//
// 등록된 도구를 이름으로 찾아 실행하고, 모든 실패(타임아웃, 패닉, 비정상 종료,
// 전송 오류)를 Result{Success: false}로 변환함. 호출자에게 error를 반환하지 않음

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kube-rca/oncall-agent/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultTimeout - 도구 1회 실행 상한
const DefaultTimeout = 10 * time.Second

// Param - 도구 인자 1개의 스키마
type Param struct {
	Type        string
	Description string
	Enum        []string
	Required    bool
}

// Spec - 오라클에게 노출되는 도구 선언
type Spec struct {
	Name        string
	Description string
	Params      map[string]Param
}

// Tool - 진단 도구
// Run은 ctx 취소 시 자식 프로세스/연결을 정리하고 반환해야 함
type Tool interface {
	Spec() Spec
	Run(ctx context.Context, args json.RawMessage) (output string, ok bool)
}

// Call - 오라클이 요청한 도구 호출 1건
type Call struct {
	Name string
	Args json.RawMessage
}

// Result - 도구 실행 결과
type Result struct {
	Output  string
	Success bool
}

// Executor 구조체 정의
type Executor struct {
	tools   map[string]Tool
	timeout time.Duration
	log     zerolog.Logger
}

// NewExecutor - timeout이 0 이하이면 DefaultTimeout 사용
func NewExecutor(timeout time.Duration, log zerolog.Logger, tools ...Tool) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	registry := make(map[string]Tool, len(tools))
	for _, t := range tools {
		registry[t.Spec().Name] = t
	}
	return &Executor{
		tools:   registry,
		timeout: timeout,
		log:     log.With().Str("component", "tool").Logger(),
	}
}

// Specs - 등록된 도구 선언 (이름순)
func (e *Executor) Specs() []Spec {
	specs := make([]Spec, 0, len(e.tools))
	for _, t := range e.tools {
		specs = append(specs, t.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Execute - 도구 1회 실행
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) Result {
	t, ok := e.tools[name]
	if !ok {
		e.log.Warn().Str("tool", name).Msg("Unknown tool requested")
		return Result{Output: fmt.Sprintf("Error: unknown tool %q", name)}
	}

	start := time.Now()
	res := e.run(ctx, t, name, args)
	metrics.ObserveTool(name, res.Success, time.Since(start))

	e.log.Debug().
		Str("tool", name).
		Bool("success", res.Success).
		Dur("elapsed", time.Since(start)).
		Msg("Tool executed")
	return res
}

func (e *Executor) run(parent context.Context, t Tool, name string, args json.RawMessage) Result {
	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	// 도구가 ctx를 무시하더라도 고루틴이 막히지 않도록 버퍼 1
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error().Str("tool", name).Interface("panic", r).Msg("Tool panicked")
				done <- Result{Output: fmt.Sprintf("Error: tool panicked: %v", r)}
			}
		}()
		output, ok := t.Run(ctx, args)
		done <- Result{Output: output, Success: ok}
	}()

	select {
	case res := <-done:
		if ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			return Result{Output: e.timeoutMessage(res.Output)}
		}
		return res
	case <-ctx.Done():
		if parent.Err() != nil {
			return Result{Output: fmt.Sprintf("Error: %v", parent.Err())}
		}
		e.log.Warn().Str("tool", name).Dur("timeout", e.timeout).Msg("Tool timed out")
		return Result{Output: e.timeoutMessage("")}
	}
}

func (e *Executor) timeoutMessage(partial string) string {
	msg := fmt.Sprintf("Error: tool timed out after %s", e.timeout)
	if partial != "" {
		msg += "\n" + partial
	}
	return msg
}
