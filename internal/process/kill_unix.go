//go:build !windows

package process

import "syscall"

// KillTree sends SIGKILL to the process group led by pid, taking Chrome's
// renderer and GPU helpers down with the browser.
func KillTree(pid int) {
	if pid <= 1 {
		return
	}
	// Errors are ignored: the group may already be gone.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
