//go:build !windows

package main

import (
	"os"
	"syscall"
)

// quitSignals stop the viewer. toggleSignals switch fullscreen.
var (
	quitSignals   = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	toggleSignals = []os.Signal{syscall.SIGUSR1}
)
