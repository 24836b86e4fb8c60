package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Upstream resolves a catalog item to a remote stream URL
type Upstream interface {
	Resolve(ctx context.Context, itemID string) (string, error)
}

// Resolver serves cached streams from disk and warms the cache in the
// background for streams it has not seen yet. Resolve never waits on a
// download.
type Resolver struct {
	cache    *DiskCache
	upstream Upstream

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight sync.Map // map[string]struct{}
}

// NewResolver wraps upstream with the disk cache
func NewResolver(cache *DiskCache, upstream Upstream) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		cache:    cache,
		upstream: upstream,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Resolve returns a local path if the item is cached, otherwise the remote URL
func (r *Resolver) Resolve(ctx context.Context, itemID string) (string, error) {
	if path, ok := r.cache.Get(itemID); ok {
		return path, nil
	}

	url, err := r.upstream.Resolve(ctx, itemID)
	if err != nil {
		return "", err
	}

	r.warm(itemID, url)
	return url, nil
}

// Prefetch starts caching an item without waiting for it
func (r *Resolver) Prefetch(ctx context.Context, itemID string) {
	if _, ok := r.cache.Get(itemID); ok {
		return
	}

	url, err := r.upstream.Resolve(ctx, itemID)
	if err != nil {
		log.Warn().Err(err).Str("item", itemID).Msg("Failed to resolve item for prefetch")
		return
	}
	r.warm(itemID, url)
}

func (r *Resolver) warm(itemID, url string) {
	if _, busy := r.inflight.LoadOrStore(itemID, struct{}{}); busy {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inflight.Delete(itemID)

		if _, err := r.cache.Fetch(r.ctx, itemID, url); err != nil && r.ctx.Err() == nil {
			log.Warn().Err(err).Str("item", itemID).Msg("Failed to cache stream")
		}
	}()
}

// Wait blocks until background downloads have finished
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Close cancels background downloads and waits for them to stop
func (r *Resolver) Close() {
	r.cancel()
	r.wg.Wait()
}
