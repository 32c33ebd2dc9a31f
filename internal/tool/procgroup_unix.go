//go:build unix

package tool

import (
	"os/exec"
	"syscall"
)

// killProcessGroup - 스크립트가 띄운 하위 프로세스까지 함께 종료
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
