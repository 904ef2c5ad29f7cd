package cli

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Error("context canceled before any signal")
	default:
	}

	if ctx.Done() == nil {
		t.Error("context has no Done channel")
	}
}

func TestSetupSignalHandlerCancelsOnSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal delivery test in short mode")
	}

	ctx := SetupSignalHandler()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess failed: %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after SIGTERM")
	}
}

func TestContextCancellationFlow(t *testing.T) {
	ctx := SetupSignalHandler()

	serverDone := make(chan bool)
	go func() {
		<-ctx.Done()
		serverDone <- true
	}()

	select {
	case <-serverDone:
		t.Error("server goroutine finished without a signal")
	case <-time.After(10 * time.Millisecond):
	}
}
