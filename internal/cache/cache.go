// Package cache keeps an in-process mirror of the remote "files"
// collection so searches never leave RAM. The remote store stays
// authoritative; the mirror is refreshed at startup and updated on local
// writes only.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bsfilter-bot/internal/model"
	"bsfilter-bot/internal/store"
)

var cachedFiles = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "bot_cached_files",
	Help: "Number of file records in the in-memory mirror.",
})

type FileCache struct {
	store  store.Store
	logger *slog.Logger

	mu    sync.RWMutex
	files []model.FileRecord
	byID  map[string]int
}

func New(st store.Store, logger *slog.Logger) *FileCache {
	return &FileCache{
		store:  st,
		logger: logger.With(slog.String("component", "file_cache")),
		byID:   make(map[string]int),
	}
}

// Refresh reloads the whole files collection from the remote store.
func (c *FileCache) Refresh(ctx context.Context) error {
	files, err := c.store.ListFiles(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]int, len(files))
	for i, rec := range files {
		byID[rec.UniqueID] = i
	}

	c.mu.Lock()
	c.files = files
	c.byID = byID
	c.mu.Unlock()

	cachedFiles.Set(float64(len(files)))
	c.logger.Info("cache refreshed", slog.Int("files", len(files)))
	return nil
}

// Add persists a record and appends it to the mirror. Returns false when a
// record with the same unique id is already indexed (nothing is written).
func (c *FileCache) Add(ctx context.Context, rec model.FileRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	c.mu.RLock()
	_, exists := c.byID[rec.UniqueID]
	c.mu.RUnlock()
	if exists {
		return false, nil
	}

	if err := c.store.PutFile(ctx, rec); err != nil {
		return false, err
	}

	c.mu.Lock()
	if _, exists := c.byID[rec.UniqueID]; !exists {
		c.byID[rec.UniqueID] = len(c.files)
		c.files = append(c.files, rec)
	}
	n := len(c.files)
	c.mu.Unlock()

	cachedFiles.Set(float64(n))
	return true, nil
}

// Remove deletes a record from the store and the mirror. Returns true when
// the record was present in the mirror.
func (c *FileCache) Remove(ctx context.Context, uniqueID string) (bool, error) {
	if err := c.store.DeleteFile(ctx, uniqueID); err != nil {
		return false, err
	}

	c.mu.Lock()
	_, present := c.byID[uniqueID]
	if present {
		// Copy-on-write so slices handed out by Snapshot stay intact.
		next := make([]model.FileRecord, 0, len(c.files)-1)
		byID := make(map[string]int, len(c.files)-1)
		for _, rec := range c.files {
			if rec.UniqueID == uniqueID {
				continue
			}
			byID[rec.UniqueID] = len(next)
			next = append(next, rec)
		}
		c.files = next
		c.byID = byID
	}
	n := len(c.files)
	c.mu.Unlock()

	cachedFiles.Set(float64(n))
	return present, nil
}

// Get returns the record for uniqueID, falling back to a direct remote
// read on a mirror miss.
func (c *FileCache) Get(ctx context.Context, uniqueID string) (*model.FileRecord, error) {
	c.mu.RLock()
	if idx, ok := c.byID[uniqueID]; ok {
		rec := c.files[idx]
		c.mu.RUnlock()
		return &rec, nil
	}
	c.mu.RUnlock()

	return c.store.GetFile(ctx, uniqueID)
}

// Snapshot returns the current corpus for searching. The returned slice
// must not be mutated.
func (c *FileCache) Snapshot() []model.FileRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files
}

// Len reports the number of mirrored records.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}
