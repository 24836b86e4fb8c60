// Package player coordinates the play queue with a playback engine. It owns
// the playback options, resolves queued items to playable streams and
// advances through the queue when a track ends.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/famish99/jellympd/internal/backends"
	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/events"
	"github.com/famish99/jellympd/internal/playlist"
)

// Resolver turns a catalog item id into a playable URI
type Resolver interface {
	Resolve(ctx context.Context, itemID string) (string, error)
}

// Prefetcher is implemented by resolvers that can warm a stream ahead of time
type Prefetcher interface {
	Prefetch(ctx context.Context, itemID string)
}

// Library looks up catalog items
type Library interface {
	Get(id string) (*catalog.Item, bool)
}

// Notifier receives subsystem change events
type Notifier interface {
	Notify(events.Subsystem)
}

// Player coordinates audio playback of the queue
type Player struct {
	mu       sync.Mutex
	queue    *playlist.Queue
	engine   backends.Engine
	resolver Resolver
	library  Library
	notifier Notifier

	options Options
	lastErr string

	// startSeq orders concurrent starts; resolving counts starts that
	// wait on the resolver with p.mu released
	startSeq  uint64
	resolving int

	// total time spent playing, for stats
	played       time.Duration
	playingSince time.Time

	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a player and starts watching the engine for finished tracks.
// Close must be called to stop the watcher.
func New(engine backends.Engine, resolver Resolver, library Library, notifier Notifier) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		queue:    playlist.NewQueue(),
		engine:   engine,
		resolver: resolver,
		library:  library,
		notifier: notifier,
		log:      log.With().Str("component", "player").Str("engine", engine.Name()).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	p.wg.Add(1)
	go p.watch()
	return p
}

// Close stops playback and the engine watcher
func (p *Player) Close() error {
	// under p.mu so no prefetch is started after the wait begins
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engine.Stop(); err != nil {
		p.log.Warn().Err(err).Msg("Failed to stop engine")
	}
	return p.engine.Close()
}

// Queue returns the play queue for read access. Mutations go through the
// player so that playback and notifications stay consistent.
func (p *Player) Queue() *playlist.Queue {
	return p.queue
}

// OutputName returns the name of the playback engine
func (p *Player) OutputName() string {
	return p.engine.Name()
}

func (p *Player) notify(subsystems ...events.Subsystem) {
	if p.notifier == nil {
		return
	}
	for _, s := range subsystems {
		p.notifier.Notify(s)
	}
}

// watch advances the queue whenever the engine finishes a track
func (p *Player) watch() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.engine.Done():
			p.mu.Lock()
			// a stale signal can arrive after the user started another track
			if p.resolving == 0 && p.engine.State() == backends.StateStopped {
				p.trackPlaytime(false)
				p.advance(p.ctx)
			}
			p.mu.Unlock()
		}
	}
}

// Add enqueues an item and returns its queue id
func (p *Player) Add(itemID string, pos *playlist.Position) (int, error) {
	id, err := p.queue.Add(itemID, pos)
	if err != nil {
		return 0, err
	}

	p.notify(events.Playlist)
	return id, nil
}

// AddAll enqueues several items at the end of the queue
func (p *Player) AddAll(itemIDs []string) ([]int, error) {
	ids := make([]int, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		id, err := p.queue.Add(itemID, nil)
		if err != nil {
			return ids, fmt.Errorf("failed to add %s: %w", itemID, err)
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		p.notify(events.Playlist)
	}
	return ids, nil
}

// Delete removes the entry at pos. Removing the playing entry stops playback.
func (p *Player) Delete(pos int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.queue.Delete(pos); err != nil {
		return err
	}
	p.afterRemove()
	return nil
}

// DeleteID removes the entry with the given queue id
func (p *Player) DeleteID(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.queue.DeleteID(id); err != nil {
		return err
	}
	p.afterRemove()
	return nil
}

func (p *Player) afterRemove() {
	if _, _, ok := p.queue.Current(); !ok && p.engine.State() != backends.StateStopped {
		p.stopEngine()
		p.notify(events.Player)
	}
	p.notify(events.Playlist)
}

// Clear empties the queue and stops playback
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	wasActive := p.engine.State() != backends.StateStopped
	p.stopEngine()
	p.queue.Clear()

	p.notify(events.Playlist)
	if wasActive {
		p.notify(events.Player)
	}
}

// prefetch warms the next stream in the background; the caller holds p.mu
func (p *Player) prefetch(itemID string) {
	pf, ok := p.resolver.(Prefetcher)
	if !ok || p.ctx.Err() != nil {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		pf.Prefetch(p.ctx, itemID)
	}()
}

func (p *Player) stopEngine() {
	p.trackPlaytime(false)
	if err := p.engine.Stop(); err != nil {
		p.log.Warn().Err(err).Msg("Failed to stop engine")
	}
}

// trackPlaytime closes the running play interval and opens a new one when
// playing is true; the caller holds p.mu
func (p *Player) trackPlaytime(playing bool) {
	now := time.Now()
	if !p.playingSince.IsZero() {
		p.played += now.Sub(p.playingSince)
	}
	p.playingSince = time.Time{}
	if playing {
		p.playingSince = now
	}
}

// Playtime returns the total time spent playing since the player was created
func (p *Player) Playtime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	played := p.played
	if !p.playingSince.IsZero() {
		played += time.Since(p.playingSince)
	}
	return played
}
