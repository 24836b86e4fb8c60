package player

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/famish99/jellympd/internal/backends"
	"github.com/famish99/jellympd/internal/events"
	"github.com/famish99/jellympd/internal/playlist"
)

// Play starts playback. A paused track is resumed; when stopped, playback
// starts at the current entry or the top of the queue.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.engine.State() {
	case backends.StatePlaying:
		return nil
	case backends.StatePaused:
		return p.resume()
	}

	pos, entry, ok := p.queue.Current()
	if !ok {
		if p.queue.Len() == 0 {
			return nil
		}
		var err error
		pos = 0
		if entry, err = p.queue.SetCurrent(0); err != nil {
			return err
		}
	}
	return p.start(ctx, pos, entry)
}

// PlayPos starts playback at a queue position
func (p *Player) PlayPos(ctx context.Context, pos int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, err := p.queue.SetCurrent(pos)
	if err != nil {
		return err
	}
	return p.start(ctx, pos, entry)
}

// PlayID starts playback at the entry with the given queue id
func (p *Player) PlayID(ctx context.Context, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, entry, err := p.queue.SetCurrentByID(id)
	if err != nil {
		return err
	}
	return p.start(ctx, pos, entry)
}

// Pause pauses or resumes playback
func (p *Player) Pause(pause bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !pause {
		return p.resume()
	}
	if p.engine.State() != backends.StatePlaying {
		return nil
	}

	p.log.Info().Msg("Pausing playback")
	if err := p.engine.Pause(); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	p.trackPlaytime(false)
	p.notify(events.Player)
	return nil
}

// TogglePause pauses when playing and resumes when paused
func (p *Player) TogglePause() error {
	p.mu.Lock()
	state := p.engine.State()
	p.mu.Unlock()

	switch state {
	case backends.StatePlaying:
		return p.Pause(true)
	case backends.StatePaused:
		return p.Pause(false)
	}
	return nil
}

// resume continues a paused track; the caller holds p.mu
func (p *Player) resume() error {
	if p.engine.State() != backends.StatePaused {
		return nil
	}

	p.log.Info().Msg("Resuming playback from pause")
	if err := p.engine.Resume(); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	p.trackPlaytime(true)
	p.notify(events.Player)
	return nil
}

// Stop stops playback completely (cannot be resumed, unlike Pause)
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine.State() == backends.StateStopped {
		return nil
	}
	p.trackPlaytime(false)
	if err := p.engine.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	p.notify(events.Player)
	return nil
}

// Next skips to the next track in the queue. Past the end playback stops.
func (p *Player) Next(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine.State() == backends.StateStopped {
		return nil
	}

	pos, entry, ok := p.nextEntry(false)
	if !ok {
		p.stopEngine()
		p.notify(events.Player)
		return nil
	}
	return p.start(ctx, pos, entry)
}

// Previous skips to the previous track, staying on the first one
func (p *Player) Previous(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine.State() == backends.StateStopped {
		return nil
	}

	pos, entry, ok := p.queue.Previous()
	if !ok {
		return nil
	}
	return p.start(ctx, pos, entry)
}

// Seek starts playback of the entry at pos from the given offset
func (p *Player) Seek(ctx context.Context, pos int, offset time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur, _, ok := p.queue.Current(); !ok || cur != pos || p.engine.State() == backends.StateStopped {
		entry, err := p.queue.SetCurrent(pos)
		if err != nil {
			return err
		}
		if err := p.start(ctx, pos, entry); err != nil {
			return err
		}
		if cur, _, ok := p.queue.Current(); !ok || cur != pos || p.engine.State() == backends.StateStopped {
			// overtaken while resolving
			return nil
		}
	}
	return p.seek(offset)
}

// SeekID is Seek addressed by queue id
func (p *Player) SeekID(ctx context.Context, id int, offset time.Duration) error {
	pos, _, ok := p.queue.GetByID(id)
	if !ok {
		return playlist.ErrNoSuchSong
	}
	return p.Seek(ctx, pos, offset)
}

// SeekCur seeks within the current track. A relative offset is added to
// the elapsed time.
func (p *Player) SeekCur(offset time.Duration, relative bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine.State() == backends.StateStopped {
		return playlist.ErrNoCurrent
	}
	if relative {
		offset += p.engine.Elapsed()
		if offset < 0 {
			offset = 0
		}
	}
	return p.seek(offset)
}

// seek moves within the playing track; the caller holds p.mu
func (p *Player) seek(offset time.Duration) error {
	p.log.Debug().Dur("offset", offset).Msg("Seeking")
	if err := p.engine.Seek(offset); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	p.notify(events.Player)
	return nil
}

// start resolves and plays an entry. The caller holds p.mu; it is released
// while the item is resolved, and a start that was overtaken by another one
// or whose entry left the queue meanwhile does nothing.
func (p *Player) start(ctx context.Context, pos int, entry playlist.Entry) error {
	var duration time.Duration
	if p.library != nil {
		if it, ok := p.library.Get(entry.ItemID); ok {
			duration = it.Duration
		}
	}

	p.startSeq++
	seq := p.startSeq
	p.resolving++

	p.mu.Unlock()
	uri, err := p.resolver.Resolve(ctx, entry.ItemID)
	p.mu.Lock()

	p.resolving--
	if seq != p.startSeq {
		p.log.Debug().Str("item", entry.ItemID).Msg("Start overtaken by a newer one")
		return nil
	}
	cur, current, ok := p.queue.Current()
	if !ok || current.ID != entry.ID {
		p.log.Debug().Str("item", entry.ItemID).Msg("Entry left the queue while resolving")
		if !ok && p.engine.State() != backends.StateStopped {
			p.stopEngine()
			p.notify(events.Player)
		}
		return nil
	}
	pos = cur

	if err == nil {
		err = p.engine.Play(ctx, uri, duration)
	}
	if err != nil {
		p.lastErr = fmt.Sprintf("failed to play %s", entry.ItemID)
		p.stopEngine()
		p.notify(events.Player)
		return fmt.Errorf("failed to play %s: %w", entry.ItemID, err)
	}

	p.lastErr = ""
	p.trackPlaytime(true)
	p.log.Info().Int("pos", pos).Int("id", entry.ID).Str("item", entry.ItemID).Msg("Playing track")
	p.notify(events.Player)

	if _, next, ok := p.queue.Peek(); ok {
		p.prefetch(next.ItemID)
	}
	return nil
}

// nextEntry moves the queue to the entry that follows the current one under
// the playback options. auto is true when the previous track ended on its own.
func (p *Player) nextEntry(auto bool) (int, playlist.Entry, bool) {
	opts := p.options

	if auto && opts.Single {
		if !opts.Repeat {
			return -1, playlist.Entry{}, false
		}
		return p.queue.Current()
	}

	if n := p.queue.Len(); opts.Random && n > 0 {
		pos := rand.Intn(n)
		// never pick the entry that just played while others are left
		if cur, _, ok := p.queue.Current(); ok && n > 1 {
			pos = rand.Intn(n - 1)
			if pos >= cur {
				pos++
			}
		}
		entry, err := p.queue.SetCurrent(pos)
		if err != nil {
			return -1, playlist.Entry{}, false
		}
		return pos, entry, true
	}

	pos, entry, ok := p.queue.Next()
	if !ok && opts.Repeat && p.queue.Len() > 0 {
		entry, err := p.queue.SetCurrent(0)
		if err != nil {
			return -1, playlist.Entry{}, false
		}
		return 0, entry, true
	}
	return pos, entry, ok
}

// advance moves on after a track ended by itself; the caller holds p.mu
func (p *Player) advance(ctx context.Context) {
	_, finished, hadCurrent := p.queue.Current()

	pos, entry, ok := p.nextEntry(true)

	if p.options.Consume && hadCurrent {
		if err := p.queue.DeleteID(finished.ID); err == nil {
			p.notify(events.Playlist)
		}
		if ok {
			// the consumed entry may have shifted the new current one
			pos, entry, ok = p.queue.Current()
		}
	}

	if !ok {
		p.log.Info().Msg("Reached end of queue")
		p.notify(events.Player)
		return
	}

	if err := p.start(ctx, pos, entry); err != nil {
		p.log.Error().Err(err).Msg("Failed to advance to next track")
	}
}
