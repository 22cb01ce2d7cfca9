//go:build !windows

package chrome

import "syscall"

// detachedProcAttr puts the browser in its own process group so terminal
// signals aimed at the controller do not reach it.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
