//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// KillTree force-kills pid and its children with taskkill /F /T.
func KillTree(pid int) {
	if pid <= 1 {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
