//go:build !unix

package sandbox

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}

func killedBySignal(*os.ProcessState) bool { return false }
func cpuExceeded(*os.ProcessState) bool    { return false }
