// Package tenantdir resolves a school id to the name of the database that
// holds the school's data. Successful resolutions are cached for the life
// of the process; Clear empties the cache.
package tenantdir

import (
	"context"
	"errors"
	"strings"
	"sync"

	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Lookup reads one tenant record. It returns tenantstore.ErrNotFound when
// the school id is unknown. *tenantstore.Store satisfies it.
type Lookup interface {
	GetBySchoolID(ctx context.Context, schoolID string) (models.Tenant, error)
}

// Directory is safe for concurrent use.
type Directory struct {
	lookup Lookup
	log    *zap.Logger

	mu    sync.RWMutex
	cache map[string]string

	group singleflight.Group
}

func New(lookup Lookup, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{lookup: lookup, log: log, cache: make(map[string]string)}
}

// ResolveDatabaseName returns the database name for schoolID.
//
// Errors: InvalidArgument for an empty id; TenantNotFound when no record
// exists or its database name is empty; ServiceUnavailable or Internal when
// the lookup itself fails. Failures are never cached.
func (d *Directory) ResolveDatabaseName(ctx context.Context, schoolID string) (string, error) {
	if strings.TrimSpace(schoolID) == "" {
		return "", apierr.New(apierr.InvalidArgument, "School id is required.")
	}

	d.mu.RLock()
	name, ok := d.cache[schoolID]
	d.mu.RUnlock()
	if ok {
		metrics.DirectoryLookups.WithLabelValues("hit").Inc()
		return name, nil
	}
	metrics.DirectoryLookups.WithLabelValues("miss").Inc()

	ch := d.group.DoChan(schoolID, func() (any, error) {
		return d.load(ctx, schoolID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", apierr.Wrap(apierr.ServiceUnavailable, "", ctx.Err())
	}
}

// load runs once per concurrent miss. It is detached from the first
// caller's cancellation so that callers sharing the flight are not failed
// by someone else's disconnect, but it stays bounded by the lookup timeout.
func (d *Directory) load(ctx context.Context, schoolID string) (string, error) {
	d.mu.RLock()
	name, ok := d.cache[schoolID]
	d.mu.RUnlock()
	if ok {
		return name, nil
	}

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Lookup())
	defer cancel()

	t, err := d.lookup.GetBySchoolID(lctx, schoolID)
	if errors.Is(err, tenantstore.ErrNotFound) {
		metrics.DirectoryLookups.WithLabelValues("not_found").Inc()
		return "", apierr.New(apierr.TenantNotFound, "")
	}
	if err != nil {
		metrics.DirectoryLookups.WithLabelValues("error").Inc()
		d.log.Warn("tenant directory lookup failed", zap.String("school_id", schoolID), zap.Error(err))
		return "", apierr.FromStore(err)
	}
	if t.DatabaseName == "" {
		metrics.DirectoryLookups.WithLabelValues("not_found").Inc()
		d.log.Warn("tenant record has no database name", zap.String("school_id", schoolID))
		return "", apierr.New(apierr.TenantNotFound, "")
	}

	d.mu.Lock()
	if existing, ok := d.cache[schoolID]; ok {
		d.mu.Unlock()
		return existing, nil
	}
	d.cache[schoolID] = t.DatabaseName
	n := len(d.cache)
	d.mu.Unlock()
	metrics.DirectoryEntries.Set(float64(n))
	return t.DatabaseName, nil
}

// Clear drops every cached resolution. Later calls query the store again.
func (d *Directory) Clear() {
	d.mu.Lock()
	d.cache = make(map[string]string)
	d.mu.Unlock()
	metrics.DirectoryEntries.Set(0)
}

// Len returns the number of cached resolutions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}
