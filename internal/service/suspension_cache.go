package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/metrics"
	"github.com/pkordes/tagconsole/internal/repo"
)

// SuspensionCache is an in-memory snapshot of the misuse log keyed by the
// normalized credential value. Its version is the highest entry ID loaded;
// since IDs only grow, a snapshot with version >= v contains entry v.
type SuspensionCache struct {
	repo  repo.SuspensionRepo
	log   *zap.Logger
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]domain.SuspensionInfo
	version int64
	loaded  bool
}

// NewSuspensionCache constructs an empty cache. It loads on first use.
func NewSuspensionCache(r repo.SuspensionRepo, log *zap.Logger) *SuspensionCache {
	return &SuspensionCache{repo: r, log: log, entries: map[string]domain.SuspensionInfo{}}
}

// Refresh reloads the whole log and returns the new version. Concurrent
// callers share one reload, which runs detached from the first caller's
// cancellation. On failure the previous snapshot is kept.
func (c *SuspensionCache) Refresh(ctx context.Context) (int64, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		entries, err := c.repo.List(shared)
		metrics.ObserveRefresh(err)
		if err != nil {
			return int64(0), err
		}

		next := make(map[string]domain.SuspensionInfo, len(entries))
		var version int64
		for _, e := range entries {
			// Later entries for the same value win.
			next[domain.NormalizeKey(e.Credential)] = domain.SuspensionInfo{EntryID: e.ID, Reason: e.Reason, Date: e.Date}
			version = max(version, e.ID)
		}

		c.mu.Lock()
		c.entries = next
		c.version = version
		c.loaded = true
		c.mu.Unlock()

		logging.FromContext(shared, c.log).Debug("suspension registry loaded",
			zap.Int("entries", len(next)), zap.Int64("version", version))
		return version, nil
	})
	if err != nil {
		return 0, fmt.Errorf("service.SuspensionCache.Refresh: %w", err)
	}
	return v.(int64), nil
}

// EnsureLoaded loads the snapshot if it has never been loaded.
func (c *SuspensionCache) EnsureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := c.Refresh(ctx)
	return err
}

// EnsureVersion returns once the snapshot covers version, refreshing if it
// does not yet. It returns domain.ErrStaleRegistry if a fresh load still
// falls short.
func (c *SuspensionCache) EnsureVersion(ctx context.Context, version int64) error {
	c.mu.RLock()
	covered := c.loaded && c.version >= version
	c.mu.RUnlock()
	if covered {
		return nil
	}

	got, err := c.Refresh(ctx)
	if err != nil {
		return err
	}
	if got < version {
		return fmt.Errorf("service.SuspensionCache.EnsureVersion: have %d, want %d: %w", got, version, domain.ErrStaleRegistry)
	}
	return nil
}

// Version returns the version of the current snapshot.
func (c *SuspensionCache) Version() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Lookup returns the suspension recorded for a credential value.
func (c *SuspensionCache) Lookup(key string) (domain.SuspensionInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[domain.NormalizeKey(key)]
	return info, ok
}

// Annotate turns rows whose credential is suspended into the suspended
// variant. Rows without a credential are returned unchanged.
func (c *SuspensionCache) Annotate(rows []domain.SearchResult) []domain.SearchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, r := range rows {
		key := r.CredentialKey()
		if key == "" {
			continue
		}
		if info, ok := c.entries[domain.NormalizeKey(key)]; ok {
			rows[i] = r.Suspended(info)
		}
	}
	return rows
}
