package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/dgehri/clcache/internal/logging"
)

func TestControllerIdleTimeoutElapses(t *testing.T) {
	c := NewController(20*time.Millisecond, logging.RootLogger)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not exit on idle timeout")
	}
}

func TestControllerResetExtendsIdle(t *testing.T) {
	c := NewController(50*time.Millisecond, logging.RootLogger)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	// Keep resetting for longer than the idle timeout would otherwise allow.
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		c.ResetIdle()
	}

	select {
	case <-done:
		t.Fatal("controller exited despite repeated resets")
	case <-time.After(30 * time.Millisecond):
	}

	c.RequestExit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not exit after RequestExit")
	}
}

func TestControllerRequestExit(t *testing.T) {
	c := NewController(0, logging.RootLogger)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	c.RequestExit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not exit after RequestExit")
	}
}
