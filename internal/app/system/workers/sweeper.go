// internal/app/system/workers/sweeper.go
package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweepable drops expired state and reports how many entries it removed.
// *ratelimit.LoginLimiter satisfies it.
type Sweepable interface {
	Sweep() int
}

// Sweeper is a background worker that periodically sweeps a Sweepable so
// in-memory windows for clients that went quiet do not pile up.
type Sweeper struct {
	name     string
	target   Sweepable
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper. name labels its log lines.
func NewSweeper(name string, target Sweepable, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		name:     name,
		target:   target,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Sweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("sweeper started",
		zap.String("sweeper", w.name),
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Sweeper) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("sweeper stopped", zap.String("sweeper", w.name))
}

func (w *Sweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *Sweeper) sweep() {
	if n := w.target.Sweep(); n > 0 {
		w.log.Debug("swept expired entries", zap.String("sweeper", w.name), zap.Int("count", n))
	}
}
