package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context canceled on the first SIGINT or
// SIGTERM. The handler unregisters itself after firing, so a second
// signal during the graceful drain falls through to the default
// disposition and terminates the process.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		signal.Stop(sigChan)
		cancel()
	}()

	return ctx
}
