// Package graceful wires interrupt handling for long-running binaries.
package graceful

import (
	"os"
	"os/signal"
	"syscall"
)

// MakeSigintChan returns a buffered channel that receives SIGINT and
// SIGTERM, so a main loop can block on it and shut down cleanly.
func MakeSigintChan() chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
