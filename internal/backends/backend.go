package backends

import (
	"context"
	"time"
)

// State is the engine's playback state
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

// String returns the MPD name of the state
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "play"
	case StatePaused:
		return "pause"
	default:
		return "stop"
	}
}

// Engine is the facade over an audio output. The player drives it; the
// protocol layer never talks to it directly.
type Engine interface {
	// Playback control
	Play(ctx context.Context, uri string, duration time.Duration) error // Start playing uri from the beginning
	Pause() error                                                       // Pause playback
	Resume() error                                                      // Resume paused playback
	Stop() error                                                        // Stop and release the current track
	Seek(position time.Duration) error                                  // Seek within the current track

	// Mixer
	SetVolume(volume int) error
	Volume() int

	// Playback state queries
	State() State
	Elapsed() time.Duration
	Duration() time.Duration

	// Done delivers a value whenever a track finishes on its own
	Done() <-chan struct{}

	// Backend information
	Name() string
	Close() error
}
