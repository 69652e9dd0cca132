package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	pkgcache "CandleNet/pkg/cache"
)

// KVArrayCache keeps arrays in a key/value store such as Redis.
type KVArrayCache struct {
	store pkgcache.Store
	ttl   time.Duration
}

func NewKVArrayCache(store pkgcache.Store, ttl time.Duration) *KVArrayCache {
	return &KVArrayCache{store: store, ttl: ttl}
}

func arrayKey(id models.Identity, part string) string {
	return pkgcache.Key("arrays", id.Symbol, id.Partition, id.Horizon, part)
}

func (c *KVArrayCache) Load(ctx context.Context, id models.Identity) (*domrepo.CachedArrays, bool, error) {
	blobs, err := c.store.GetMany(ctx,
		arrayKey(id, manifestName),
		arrayKey(id, labelsName),
		arrayKey(id, featuresName),
	)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached arrays: %w", err)
	}
	arrays, err := decodeArrays(&encodedArrays{manifest: blobs[0], labels: blobs[1], features: blobs[2]})
	if err != nil {
		return nil, false, err
	}
	return arrays, true, nil
}

func (c *KVArrayCache) Store(ctx context.Context, a *domrepo.CachedArrays) error {
	e, err := encodeArrays(a)
	if err != nil {
		return err
	}
	id := a.Dataset.Identity
	err = c.store.SetMany(ctx, map[string][]byte{
		arrayKey(id, manifestName): e.manifest,
		arrayKey(id, labelsName):   e.labels,
		arrayKey(id, featuresName): e.features,
	}, c.ttl)
	if err != nil {
		return fmt.Errorf("set cached arrays: %w", err)
	}
	return nil
}

func (c *KVArrayCache) Invalidate(ctx context.Context, id models.Identity) error {
	return c.store.Delete(ctx,
		arrayKey(id, manifestName),
		arrayKey(id, labelsName),
		arrayKey(id, featuresName),
	)
}
