package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// PythonName - 코드 실행 도구 이름
const PythonName = "execute_python"

// PythonTool - 진단 스크립트를 하위 프로세스로 실행
// Interpreter는 "<bin> -c <code>" 형태로 호출됨 (기본 python3)
type PythonTool struct {
	Interpreter string
}

type pythonArgs struct {
	Code string `json:"code"`
}

func NewPythonTool(interpreter string) *PythonTool {
	if strings.TrimSpace(interpreter) == "" {
		interpreter = "python3"
	}
	return &PythonTool{Interpreter: interpreter}
}

func (p *PythonTool) Spec() Spec {
	return Spec{
		Name:        PythonName,
		Description: "Execute Python code to diagnose issues. Use for DB checks, API tests, config validation. Keep code simple and focused.",
		Params: map[string]Param{
			"code": {Type: "string", Description: "Python code to execute", Required: true},
		},
	}
}

func (p *PythonTool) Run(ctx context.Context, raw json.RawMessage) (string, bool) {
	var args pythonArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Sprintf("Error: invalid arguments: %v", err), false
	}
	if strings.TrimSpace(args.Code) == "" {
		return "Error: code is required", false
	}

	fields := strings.Fields(p.Interpreter)
	if len(fields) == 0 {
		fields = []string{"python3"}
	}
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], "-c", args.Code)...)
	cmd.Env = append(os.Environ(), "PYTHONDONTWRITEBYTECODE=1")
	killProcessGroup(cmd)
	// 손자 프로세스가 파이프를 잡고 있어도 Wait가 반환되도록 함
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	out := strings.TrimSpace(stdout.String())
	errOut := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		// 실행 파일을 찾지 못하는 등 프로세스 시작 실패
		return fmt.Sprintf("Errors:\nFailed to execute Python: %v", runErr), false
	}

	var b strings.Builder
	if out != "" {
		b.WriteString("Output:\n")
		b.WriteString(out)
	}
	if errOut != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Errors:\n")
		b.WriteString(errOut)
	}

	if runErr != nil {
		if b.Len() == 0 {
			return fmt.Sprintf("Failed with no output (exit code %d)", exitErr.ExitCode()), false
		}
		return b.String(), false
	}
	if b.Len() == 0 {
		return "Completed successfully (no output)", true
	}
	return b.String(), true
}
