// Package simulated provides a playback engine that keeps time without
// producing audio. It is the default backend and the one used in tests.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/famish99/jellympd/internal/backends"
)

var ErrNotPlaying = errors.New("not playing")

// Engine tracks playback position against the wall clock and reports the
// end of each track once its duration has elapsed
type Engine struct {
	mu         sync.Mutex
	state      backends.State
	uri        string
	duration   time.Duration
	offset     time.Duration // position when playback last (re)started
	started    time.Time
	volume     int
	timer      *time.Timer
	generation uint64

	done chan struct{}
}

// New creates a stopped engine at the given volume
func New(volume int) *Engine {
	return &Engine{
		volume: volume,
		done:   make(chan struct{}, 1),
	}
}

// Play starts uri from the beginning
func (e *Engine) Play(_ context.Context, uri string, duration time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimer()
	e.uri = uri
	e.duration = duration
	e.offset = 0
	e.started = time.Now()
	e.state = backends.StatePlaying
	e.schedule()

	log.Debug().Str("uri", uri).Dur("duration", duration).Msg("Simulated playback started")
	return nil
}

// Pause pauses playback
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != backends.StatePlaying {
		return nil
	}
	e.offset = e.elapsed()
	e.state = backends.StatePaused
	e.stopTimer()
	return nil
}

// Resume continues paused playback
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != backends.StatePaused {
		return nil
	}
	e.started = time.Now()
	e.state = backends.StatePlaying
	e.schedule()
	return nil
}

// Stop stops playback and forgets the current track
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimer()
	e.state = backends.StateStopped
	e.uri = ""
	e.offset = 0
	e.duration = 0
	return nil
}

// Seek moves the playback position within the current track
func (e *Engine) Seek(position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == backends.StateStopped {
		return ErrNotPlaying
	}
	if position < 0 {
		position = 0
	}
	if e.duration > 0 && position > e.duration {
		return fmt.Errorf("position %s beyond track length %s", position, e.duration)
	}

	e.offset = position
	e.started = time.Now()
	if e.state == backends.StatePlaying {
		e.stopTimer()
		e.schedule()
	}
	return nil
}

// SetVolume sets the mixer volume (0-100)
func (e *Engine) SetVolume(volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("volume out of range: %d", volume)
	}
	e.mu.Lock()
	e.volume = volume
	e.mu.Unlock()
	return nil
}

// Volume returns the mixer volume
func (e *Engine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// State returns the playback state
func (e *Engine) State() backends.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Elapsed returns the playback position
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed()
}

// Duration returns the length of the current track, 0 if unknown
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// URI returns the uri being played
func (e *Engine) URI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uri
}

// Done delivers a value when a track reaches its end
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Name returns the backend name
func (e *Engine) Name() string {
	return "simulated"
}

// Close stops playback
func (e *Engine) Close() error {
	return e.Stop()
}

func (e *Engine) elapsed() time.Duration {
	if e.state != backends.StatePlaying {
		return e.offset
	}
	pos := e.offset + time.Since(e.started)
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	return pos
}

// schedule arms the end-of-track timer; the caller holds e.mu
func (e *Engine) schedule() {
	e.generation++
	if e.duration <= 0 {
		return
	}

	gen := e.generation
	e.timer = time.AfterFunc(e.duration-e.offset, func() {
		e.finish(gen)
	})
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.generation++
}

func (e *Engine) finish(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || e.state != backends.StatePlaying {
		e.mu.Unlock()
		return
	}
	e.state = backends.StateStopped
	e.offset = e.duration
	e.timer = nil
	e.mu.Unlock()

	select {
	case e.done <- struct{}{}:
	default:
	}
}
