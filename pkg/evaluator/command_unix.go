//go:build unix

package evaluator

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	// A negative PID addresses the whole process group.
	return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}
