package player

import (
	"fmt"
	"time"

	"github.com/famish99/jellympd/internal/backends"
	"github.com/famish99/jellympd/internal/events"
)

// Options are the playback modes toggled by repeat, random, single and
// consume
type Options struct {
	Repeat  bool `json:"repeat"`
	Random  bool `json:"random"`
	Single  bool `json:"single"`
	Consume bool `json:"consume"`
}

// Status is a consistent snapshot of the player and queue
type Status struct {
	Volume          int            `json:"volume"`
	Options         Options        `json:"options"`
	PlaylistVersion uint32         `json:"playlist"`
	PlaylistLength  int            `json:"playlist_length"`
	State           backends.State `json:"-"`
	StateName       string         `json:"state"`

	// Song and NextSong are queue positions, -1 when unset
	Song       int `json:"song"`
	SongID     int `json:"song_id"`
	NextSong   int `json:"next_song"`
	NextSongID int `json:"next_song_id"`

	Elapsed  time.Duration `json:"elapsed"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Status returns the current playback status
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.engine.State()
	st := Status{
		Volume:          p.engine.Volume(),
		Options:         p.options,
		PlaylistVersion: p.queue.Version(),
		PlaylistLength:  p.queue.Len(),
		State:           state,
		StateName:       state.String(),
		Song:            -1,
		SongID:          -1,
		NextSong:        -1,
		NextSongID:      -1,
		Error:           p.lastErr,
	}

	if pos, entry, ok := p.queue.Current(); ok {
		st.Song, st.SongID = pos, entry.ID
	}
	if pos, entry, ok := p.queue.Peek(); ok {
		st.NextSong, st.NextSongID = pos, entry.ID
	}
	if state != backends.StateStopped {
		st.Elapsed = p.engine.Elapsed()
		st.Duration = p.engine.Duration()
	}
	return st
}

// Options returns the playback modes
func (p *Player) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.options
}

// SetOptions applies update to the playback modes
func (p *Player) SetOptions(update func(*Options)) {
	p.mu.Lock()
	before := p.options
	update(&p.options)
	changed := before != p.options
	p.mu.Unlock()

	if changed {
		p.notify(events.Options)
	}
}

// Volume returns the mixer volume
func (p *Player) Volume() int {
	return p.engine.Volume()
}

// SetVolume sets the mixer volume (0-100)
func (p *Player) SetVolume(volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("volume out of range: %d", volume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.engine.SetVolume(volume); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	p.notify(events.Mixer)
	return nil
}

// ChangeVolume adjusts the volume by delta, clamped to 0-100
func (p *Player) ChangeVolume(delta int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume := min(max(p.engine.Volume()+delta, 0), 100)
	if err := p.engine.SetVolume(volume); err != nil {
		return 0, fmt.Errorf("failed to set volume: %w", err)
	}
	p.notify(events.Mixer)
	return volume, nil
}

// ClearError forgets the last playback error
func (p *Player) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = ""
}
