package workers

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingTarget struct {
	calls atomic.Int32
}

func (c *countingTarget) Sweep() int {
	c.calls.Add(1)
	return 2
}

func TestSweeper_RunsUntilStopped(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	target := &countingTarget{}
	w := NewSweeper("login", target, zap.New(core), 5*time.Millisecond)

	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for target.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	n := target.calls.Load()
	if n < 2 {
		t.Fatalf("swept %d times, want at least 2", n)
	}
	time.Sleep(20 * time.Millisecond)
	if target.calls.Load() != n {
		t.Error("sweeper kept running after Stop")
	}
	if logs.FilterMessage("swept expired entries").Len() == 0 {
		t.Error("expected a debug line per sweep")
	}
	if logs.FilterMessage("sweeper stopped").Len() != 1 {
		t.Error("expected one stop line")
	}
}
