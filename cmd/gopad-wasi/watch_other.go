//go:build !unix

package main

// hostAlive has no cheap liveness probe on this platform. The module keeps
// running until it exits or the launcher is killed.
func hostAlive(int) bool { return true }
