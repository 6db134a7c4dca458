//go:build windows

package server

import (
	"os"
	"syscall"
)

// handledSignals are the signals that trigger graceful termination.
// Ctrl+Break arrives as os.Interrupt through the console handler the
// runtime installs, so interrupt and terminate cover the break case.
var handledSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

// raiseSignal is a no-op on Windows: there is no kill(2)-style
// self-delivery, and console events cannot be re-posted portably.
func raiseSignal(os.Signal) {}
