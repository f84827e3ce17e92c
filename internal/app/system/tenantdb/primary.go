package tenantdb

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Primary wraps the process-wide client with a connected flag. The flag
// starts true (the client was pinged during startup) and is maintained by
// the watcher afterwards.
type Primary struct {
	client    *mongo.Client
	connected atomic.Bool
}

func NewPrimary(client *mongo.Client) *Primary {
	p := &Primary{client: client}
	p.SetConnected(client != nil)
	return p
}

func (p *Primary) Connected() bool { return p.connected.Load() }

func (p *Primary) SetConnected(v bool) {
	p.connected.Store(v)
	if v {
		metrics.PrimaryConnected.Set(1)
	} else {
		metrics.PrimaryConnected.Set(0)
	}
}

func (p *Primary) Database(name string) *mongo.Database { return p.client.Database(name) }

// Ping checks the primary and records the result.
func (p *Primary) Ping(ctx context.Context) error {
	err := p.client.Ping(ctx, readpref.Primary())
	p.SetConnected(err == nil)
	return err
}

// Pinger is what the watcher probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher is a background worker that pings the primary on an interval.
// The driver reconnects on its own; the watcher only keeps the connected
// flag honest so that Pool.Handle can refuse while the database is away.
type Watcher struct {
	target   Pinger
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	up atomic.Bool
}

// NewWatcher creates a watcher. timeout bounds each ping.
func NewWatcher(target Pinger, logger *zap.Logger, interval, timeout time.Duration) *Watcher {
	w := &Watcher{
		target:   target,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
	w.up.Store(true)
	return w
}

// Start begins the background loop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("connection watcher started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("connection watcher stopped")
}

func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.target.Ping(ctx)
	was := w.up.Swap(err == nil)
	switch {
	case err != nil && was:
		w.log.Error("primary database unreachable", zap.Error(err))
	case err == nil && !was:
		w.log.Info("primary database reachable again")
	}
}
