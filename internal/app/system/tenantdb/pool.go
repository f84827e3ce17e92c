// Package tenantdb hands out database handles for tenant databases. Every
// handle is derived from the one primary client, so handles share the
// driver's connection pool and opening one costs no sockets.
package tenantdb

import (
	"strings"
	"sync"

	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// Source is the primary connection handles are derived from.
type Source interface {
	Connected() bool
	Database(name string) *mongo.Database
}

// Pool caches one *mongo.Database per database name. Safe for concurrent use.
type Pool struct {
	src Source

	mu      sync.RWMutex
	handles map[string]*mongo.Database
}

func NewPool(src Source) *Pool {
	return &Pool{src: src, handles: make(map[string]*mongo.Database)}
}

// Handle returns the handle for databaseName, creating and caching it on
// first use. The primary's state is checked on every call, so a cached
// handle is never returned while the primary is down.
func (p *Pool) Handle(databaseName string) (*mongo.Database, error) {
	if strings.TrimSpace(databaseName) == "" {
		return nil, apierr.New(apierr.InvalidArgument, "Database name is required.")
	}
	if !p.src.Connected() {
		metrics.PoolRefusals.Inc()
		return nil, apierr.New(apierr.NotConnected, "")
	}

	p.mu.RLock()
	db, ok := p.handles[databaseName]
	p.mu.RUnlock()
	if ok {
		return db, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if db, ok := p.handles[databaseName]; ok {
		return db, nil
	}
	db = p.src.Database(databaseName)
	p.handles[databaseName] = db
	metrics.PoolHandles.Set(float64(len(p.handles)))
	return db, nil
}

// Clear forgets every cached handle.
func (p *Pool) Clear() {
	p.mu.Lock()
	p.handles = make(map[string]*mongo.Database)
	p.mu.Unlock()
	metrics.PoolHandles.Set(0)
}

// Len returns the number of cached handles.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handles)
}
