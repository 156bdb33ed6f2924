package clinic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Source is the subset of the remote client the directory loads from.
type Source interface {
	ListBranches(ctx context.Context) catalog.Envelope[[]catalog.Branch]
	ListServices(ctx context.Context, filter catalog.ServiceFilter) catalog.Envelope[[]catalog.Service]
}

// Directory owns the clinic-wide snapshot. It is loaded once at startup and
// replaced wholesale on Refresh; readers never see a partially built snapshot.
type Directory struct {
	source Source
	cache  Cache
	logger *logging.Logger
	now    func() time.Time

	snap      atomic.Pointer[Snapshot]
	refreshMu sync.Mutex
}

// NewDirectory creates a directory. cache may be nil.
func NewDirectory(source Source, cache Cache, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{source: source, cache: cache, logger: logger, now: time.Now}
}

// Load populates the directory, preferring the cache over the remote API.
func (d *Directory) Load(ctx context.Context) error {
	if d.cache != nil {
		snap, err := d.cache.Get(ctx)
		switch {
		case err == nil:
			d.snap.Store(snap)
			d.logger.Info("clinic directory loaded from cache",
				"branches", len(snap.Branches), "services", len(snap.Services), "loaded_at", snap.LoadedAt)
			return nil
		case !errors.Is(err, ErrCacheMiss):
			d.logger.Warn("clinic directory cache unavailable", "error", err)
		}
	}
	return d.Refresh(ctx)
}

// Refresh reloads from the remote API. On failure the previous snapshot stays.
func (d *Directory) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	branches := d.source.ListBranches(ctx)
	if !branches.Success {
		return fmt.Errorf("clinic: list branches: %s", branches.Message)
	}
	services := d.source.ListServices(ctx, catalog.ServiceFilter{})
	if !services.Success {
		return fmt.Errorf("clinic: list services: %s", services.Message)
	}

	snap := &Snapshot{
		Branches: branches.Data,
		Services: services.Data,
		LoadedAt: d.now().UTC(),
	}
	d.snap.Store(snap)
	d.logger.Info("clinic directory refreshed", "branches", len(snap.Branches), "services", len(snap.Services))

	if d.cache != nil {
		if err := d.cache.Set(ctx, snap); err != nil {
			d.logger.Warn("failed to cache clinic directory", "error", err)
		}
	}
	return nil
}

// Reload drops the shared cached snapshot and then refreshes. If the remote
// call fails the in-memory snapshot stays but other instances will no longer
// load the dropped copy.
func (d *Directory) Reload(ctx context.Context) error {
	if d.cache != nil {
		if err := d.cache.Invalidate(ctx); err != nil {
			d.logger.Warn("failed to invalidate cached clinic directory", "error", err)
		}
	}
	return d.Refresh(ctx)
}

// Snapshot returns the current snapshot, or nil before the first load.
func (d *Directory) Snapshot() *Snapshot {
	return d.snap.Load()
}

// Current returns the snapshot or ErrNotLoaded.
func (d *Directory) Current() (*Snapshot, error) {
	if snap := d.snap.Load(); snap != nil {
		return snap, nil
	}
	return nil, ErrNotLoaded
}

// Run refreshes on every tick until ctx is done.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.logger.Warn("clinic directory refresh failed", "error", err)
			}
		}
	}
}
