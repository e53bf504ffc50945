//go:build windows

package execute

import "os/exec"

func configureScriptProcess(cmd *exec.Cmd) {}

func terminateScriptProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
