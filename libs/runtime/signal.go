package runtime

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exit is replaced in tests.
var exit = os.Exit

// SignalContext returns a child of parent that is cancelled on the first SIGINT or SIGTERM.
// A second signal before stop is called exits the process with status 1, so a stuck drain can
// still be interrupted from the terminal.
func SignalContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigs:
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigs:
			exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
			cancel()
		})
	}
}
