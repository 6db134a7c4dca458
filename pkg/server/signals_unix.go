//go:build !windows

package server

import (
	"os"
	"syscall"
)

// handledSignals are the signals that trigger graceful termination.
var handledSignals = []os.Signal{
	syscall.SIGINT,  // sent by Ctrl+C
	syscall.SIGTERM, // sent by `kill <pid>`
}

// raiseSignal re-delivers a previously captured signal to this process.
func raiseSignal(sig os.Signal) {
	if s, ok := sig.(syscall.Signal); ok {
		_ = syscall.Kill(os.Getpid(), s)
	}
}
