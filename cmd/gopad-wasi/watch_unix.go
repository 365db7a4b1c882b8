//go:build unix

package main

import "golang.org/x/sys/unix"

// hostAlive probes the host process with a null signal.
func hostAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
