package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/famish99/jellympd/internal/events"
)

var (
	ErrUpdateRunning = errors.New("already updating")
	ErrNoSource      = errors.New("no library source configured")
)

// Source fetches the full list of audio items from the remote library
type Source interface {
	FetchItems(ctx context.Context) ([]Item, error)
}

// Notifier receives subsystem change events
type Notifier interface {
	Notify(events.Subsystem)
}

// Stats summarizes the catalog contents
type Stats struct {
	Artists    int
	Albums     int
	Songs      int
	Playtime   time.Duration
	LastUpdate time.Time
}

// Catalog is the in-memory mirror of the remote library. Readers share a
// lock; a refresh builds the new index off-lock and swaps it in exclusively.
type Catalog struct {
	mu      sync.RWMutex
	items   map[string]*Item
	order   []*Item
	root    *Node
	updated time.Time

	source   Source
	store    *Store
	notifier Notifier

	updating atomic.Bool
	jobID    atomic.Int64
	wg       sync.WaitGroup
}

// New creates an empty catalog. store and notifier may be nil.
func New(source Source, store *Store, notifier Notifier) *Catalog {
	return &Catalog{
		items:    make(map[string]*Item),
		root:     BuildTree(nil),
		source:   source,
		store:    store,
		notifier: notifier,
	}
}

// Load restores the last saved snapshot from the store
func (c *Catalog) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	items, updated, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	c.Replace(items)
	c.mu.Lock()
	c.updated = updated
	c.mu.Unlock()

	log.Info().Int("items", len(items)).Time("updated", updated).Msg("Loaded catalog snapshot")
	return nil
}

// Replace swaps in a new set of items and rebuilds the directory view
func (c *Catalog) Replace(items []Item) {
	index := make(map[string]*Item, len(items))
	order := make([]*Item, 0, len(items))
	for i := range items {
		it := &items[i]
		if _, dup := index[it.ID]; dup {
			continue
		}
		index[it.ID] = it
		order = append(order, it)
	}
	root := BuildTree(order)

	c.mu.Lock()
	c.items = index
	c.order = order
	c.root = root
	c.updated = time.Now()
	c.mu.Unlock()

	c.notify(events.Database)
}

// Refresh fetches the library from the source and replaces the index.
// It fails with ErrUpdateRunning if another refresh is in progress.
func (c *Catalog) Refresh(ctx context.Context) error {
	if !c.updating.CompareAndSwap(false, true) {
		return ErrUpdateRunning
	}
	c.jobID.Add(1)
	defer c.finishUpdate()

	c.notify(events.Update)
	return c.refresh(ctx)
}

// StartRefresh runs a refresh in the background and returns its job id
func (c *Catalog) StartRefresh(ctx context.Context) (int, error) {
	if !c.updating.CompareAndSwap(false, true) {
		return 0, ErrUpdateRunning
	}
	id := int(c.jobID.Add(1))
	c.notify(events.Update)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.finishUpdate()

		if err := c.refresh(ctx); err != nil {
			log.Error().Err(err).Int("job", id).Msg("Catalog update failed")
		}
	}()

	return id, nil
}

// Wait blocks until background refreshes have finished
func (c *Catalog) Wait() {
	c.wg.Wait()
}

// Updating returns the running job id, if any
func (c *Catalog) Updating() (int, bool) {
	if !c.updating.Load() {
		return 0, false
	}
	return int(c.jobID.Load()), true
}

func (c *Catalog) finishUpdate() {
	c.updating.Store(false)
	c.notify(events.Update)
}

func (c *Catalog) refresh(ctx context.Context) error {
	if c.source == nil {
		return ErrNoSource
	}

	start := time.Now()
	items, err := c.source.FetchItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch items: %w", err)
	}

	c.Replace(items)
	log.Info().Int("items", len(items)).Dur("took", time.Since(start)).Msg("Catalog updated")

	if c.store != nil {
		c.mu.RLock()
		order, updated := c.order, c.updated
		c.mu.RUnlock()

		if err := c.store.Save(ctx, order, updated); err != nil {
			return fmt.Errorf("failed to save catalog: %w", err)
		}
	}
	return nil
}

func (c *Catalog) notify(s events.Subsystem) {
	if c.notifier != nil {
		c.notifier.Notify(s)
	}
}

// Get returns an item by id
func (c *Catalog) Get(id string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// Items returns all items in catalog order
func (c *Catalog) Items() []*Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order
}

// Lookup resolves a directory path in the browse tree
func (c *Catalog) Lookup(path string) (*Node, bool) {
	c.mu.RLock()
	root := c.root
	c.mu.RUnlock()
	return root.Navigate(path)
}

// Len returns the number of items
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Stats computes catalog statistics
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	artists := make(map[string]struct{})
	albums := make(map[string]struct{})
	var playtime time.Duration

	for _, it := range c.order {
		for _, a := range it.Artists {
			artists[a] = struct{}{}
		}
		if it.Album != "" {
			albums[it.Album] = struct{}{}
		}
		playtime += it.Duration
	}

	return Stats{
		Artists:    len(artists),
		Albums:     len(albums),
		Songs:      len(c.order),
		Playtime:   playtime,
		LastUpdate: c.updated,
	}
}
