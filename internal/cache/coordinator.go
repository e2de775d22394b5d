// Package cache owns the last-known-good rendered artifacts and the
// refresh protocol around them: at most one recomputation in flight,
// stale snapshots served while a fresh one is being built, and an
// optional on-disk backup to warm-start from after a restart.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
)

// RefreshFunc recomputes the artifacts. It is the whole pipeline:
// scan events, gather grids, render html and css.
type RefreshFunc func(ctx context.Context) (html, css string, err error)

// Coordinator hands out the current snapshot and keeps it fresh.
// Construct one with New and share it by pointer; the zero value is not
// usable.
type Coordinator struct {
	refresh    RefreshFunc
	ttl        time.Duration
	backupPath string

	// refreshing is the single-flight claim: a refresh may only start
	// by winning the false->true transition.
	refreshing  atomic.Bool
	initialized atomic.Bool

	mu       sync.RWMutex
	snapshot model.Snapshot

	// waitMu guards waiters; readers arriving before the first snapshot
	// exists park here until the in-flight refresh settles.
	waitMu  sync.Mutex
	waiters []chan error
}

// New creates a Coordinator. backupPath may be empty, in which case no
// backup is read or written.
func New(refresh RefreshFunc, ttl time.Duration, backupPath string) *Coordinator {
	return &Coordinator{
		refresh:    refresh,
		ttl:        ttl,
		backupPath: backupPath,
	}
}

// Get returns the current snapshot.
//
// Before the first snapshot exists, Get blocks until the in-flight
// refresh settles and returns its error if it failed. Once initialized,
// Get never blocks: a stale snapshot is returned as-is and a background
// refresh is kicked off for future requests.
func (c *Coordinator) Get(ctx context.Context) (model.Snapshot, error) {
	if !c.initialized.Load() {
		if err := c.waitInitialized(ctx); err != nil {
			return model.Snapshot{}, err
		}
	}

	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()

	if !time.Now().Before(snap.ProducedAt.Add(c.ttl)) {
		c.maybeRefresh()
	}
	return snap, nil
}

// Refresh runs a refresh right away regardless of the snapshot's age,
// blocking until it settles. It is a no-op if another refresh already
// holds the claim.
func (c *Coordinator) Refresh() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	c.doRefresh()
}

// maybeRefresh starts a background refresh if no other is in flight.
func (c *Coordinator) maybeRefresh() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go c.doRefresh()
}

// waitInitialized parks the caller until the current refresh attempt
// settles. It starts a refresh if none is running.
func (c *Coordinator) waitInitialized(ctx context.Context) error {
	c.waitMu.Lock()
	if c.initialized.Load() {
		c.waitMu.Unlock()
		return nil
	}
	ch := make(chan error, 1)
	c.waiters = append(c.waiters, ch)
	c.waitMu.Unlock()

	c.maybeRefresh()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doRefresh is the body of a refresh attempt. The caller must hold the
// refreshing claim.
func (c *Coordinator) doRefresh() {
	// Warm start: before the first recomputation finishes, a persisted
	// snapshot lets early requests be answered. ProducedAt stays zero so
	// the warm snapshot is immediately stale.
	if !c.initialized.Load() && c.backupPath != "" {
		if html, css, err := readBackup(c.backupPath); err != nil {
			appLog.Error("could not load cache backup", err, "path", c.backupPath)
		} else {
			c.install(model.Snapshot{HTML: html, CSS: css})
			c.settle(nil)
			appLog.Info("initialized cache from backup file", "path", c.backupPath)
		}
	}

	appLog.Debug("refreshing cache")
	start := time.Now()
	html, css, err := c.refresh(context.Background())
	if err != nil {
		appLog.Error("cache refresh failed, previous snapshot retained", err)
	} else {
		snap := model.Snapshot{HTML: html, CSS: css, ProducedAt: time.Now()}
		c.install(snap)
		if c.backupPath != "" {
			// Fire and forget; the hot read path never waits on disk.
			go func() {
				if werr := writeBackup(c.backupPath, snap.HTML, snap.CSS); werr != nil {
					appLog.Error("could not write cache backup", werr, "path", c.backupPath)
				}
			}()
		}
		appLog.Info("updated cache", "took", time.Since(start))
	}

	// Release the claim before waking waiters so a reader woken by a
	// failed attempt can immediately start the next one.
	c.refreshing.Store(false)
	c.settle(err)
}

// install atomically replaces the snapshot as a whole.
func (c *Coordinator) install(snap model.Snapshot) {
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}

// settle marks the coordinator initialized on success and wakes every
// parked cold-start reader with the attempt's outcome.
func (c *Coordinator) settle(err error) {
	c.waitMu.Lock()
	if err == nil {
		c.initialized.Store(true)
	}
	waiters := c.waiters
	c.waiters = nil
	c.waitMu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
}
