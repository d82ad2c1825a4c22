//go:build windows

package main

import "os"

var (
	quitSignals   = []os.Signal{os.Interrupt}
	toggleSignals []os.Signal
)
