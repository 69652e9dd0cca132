// Package modelcache keeps recently used models in memory for the HTTP
// server and drops them when their directory changes on disk.
package modelcache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"

	"CandleNet/internal/domain/models"
	"CandleNet/internal/domain/service"
	"CandleNet/internal/services/network"
	applogger "CandleNet/pkg/logger"
)

// Source loads a model from persistent storage.
type Source interface {
	Load(id models.Identity) (service.Network, *network.Meta, error)
}

type entry struct {
	net  *lockedNetwork
	meta *network.Meta
}

// Cache is an LRU of loaded models keyed by identity.
type Cache struct {
	src     Source
	lru     *lru.Cache[models.Identity, entry]
	watcher *fsnotify.Watcher
	log     *applogger.Logger

	mu   sync.Mutex
	dirs map[string]models.Identity
}

func New(src Source, size int, log *applogger.Logger) (*Cache, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("model watcher: %w", err)
	}
	if log == nil {
		log = applogger.Nop()
	}
	c := &Cache{
		src:     src,
		watcher: w,
		log:     log,
		dirs:    make(map[string]models.Identity),
	}
	c.lru, err = lru.NewWithEvict[models.Identity, entry](size, c.onEvict)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("model lru: %w", err)
	}
	return c, nil
}

// Load returns the cached model of id, reading it from the source on a miss.
// The returned network serialises Predict calls.
func (c *Cache) Load(id models.Identity) (service.Network, *network.Meta, error) {
	if e, ok := c.lru.Get(id); ok {
		return e.net, e.meta, nil
	}
	net, meta, err := c.src.Load(id)
	if err != nil {
		return nil, nil, err
	}
	e := entry{net: &lockedNetwork{Network: net}, meta: meta}
	if meta != nil && meta.Dir != "" {
		dir := filepath.Clean(meta.Dir)
		if err := c.watcher.Add(dir); err != nil {
			c.log.Warn("watch model dir failed", applogger.String("dir", dir), applogger.Error(err))
		} else {
			c.mu.Lock()
			c.dirs[dir] = id
			c.mu.Unlock()
		}
	}
	c.lru.Add(id, e)
	return e.net, e.meta, nil
}

// Evict drops id from the cache.
func (c *Cache) Evict(id models.Identity) bool {
	return c.lru.Remove(id)
}

func (c *Cache) Len() int { return c.lru.Len() }

// Run evicts models whose files change until ctx is done.
func (c *Cache) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Create) {
				continue
			}
			if id, ok := c.owner(ev.Name); ok && c.Evict(id) {
				c.log.Info("model changed on disk, evicted",
					applogger.String("identity", id.Key()),
					applogger.String("op", ev.Op.String()))
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("model watcher error", applogger.Error(err))
		}
	}
}

func (c *Cache) Close() error {
	c.lru.Purge()
	return c.watcher.Close()
}

func (c *Cache) owner(name string) (models.Identity, bool) {
	name = filepath.Clean(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.dirs[name]; ok {
		return id, true
	}
	id, ok := c.dirs[filepath.Dir(name)]
	return id, ok
}

func (c *Cache) onEvict(id models.Identity, e entry) {
	if e.meta == nil || e.meta.Dir == "" {
		return
	}
	dir := filepath.Clean(e.meta.Dir)
	c.mu.Lock()
	if c.dirs[dir] == id {
		delete(c.dirs, dir)
	}
	c.mu.Unlock()
	// the directory may already be gone
	_ = c.watcher.Remove(dir)
}

type lockedNetwork struct {
	service.Network
	mu sync.Mutex
}

func (l *lockedNetwork) Predict(x []float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Network.Predict(x)
}
