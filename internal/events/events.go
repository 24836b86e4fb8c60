// Package events implements the subsystem change notification bus used by
// idle clients.
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Subsystem is an independently observable area of server state
type Subsystem int

const (
	Database Subsystem = iota
	Update
	StoredPlaylist
	Playlist
	Player
	Mixer
	Output
	Options
	Partition
	Sticker
	Subscription
	Message
	Neighbor
	Mount

	numSubsystems
)

var subsystemNames = [numSubsystems]string{
	Database:       "database",
	Update:         "update",
	StoredPlaylist: "stored_playlist",
	Playlist:       "playlist",
	Player:         "player",
	Mixer:          "mixer",
	Output:         "output",
	Options:        "options",
	Partition:      "partition",
	Sticker:        "sticker",
	Subscription:   "subscription",
	Message:        "message",
	Neighbor:       "neighbor",
	Mount:          "mount",
}

// String returns the name used on the wire
func (s Subsystem) String() string {
	if s < 0 || s >= numSubsystems {
		return fmt.Sprintf("subsystem(%d)", int(s))
	}
	return subsystemNames[s]
}

// ParseSubsystem resolves a subsystem by name, ignoring case
func ParseSubsystem(name string) (Subsystem, error) {
	for i, n := range subsystemNames {
		if strings.EqualFold(n, name) {
			return Subsystem(i), nil
		}
	}
	return 0, fmt.Errorf("unknown subsystem: %s", name)
}

// All returns every subsystem in ordinal order
func All() []Subsystem {
	all := make([]Subsystem, numSubsystems)
	for i := range all {
		all[i] = Subsystem(i)
	}
	return all
}

// Notifier broadcasts subsystem changes to any number of listeners.
//
// Every subsystem carries a generation counter. Notify bumps it and wakes all
// waiters by closing the current broadcast channel. Listeners remember the
// last generation they observed, so an event fired between two Listen calls
// is still seen by the second one.
type Notifier struct {
	mu         sync.Mutex
	generation [numSubsystems]uint64
	changed    chan struct{}

	waiting atomic.Int32
}

// NewNotifier creates a notifier with no pending events
func NewNotifier() *Notifier {
	return &Notifier{
		changed: make(chan struct{}),
	}
}

// Notify records a change to the given subsystem and wakes waiting listeners
func (n *Notifier) Notify(s Subsystem) {
	if s < 0 || s >= numSubsystems {
		return
	}

	n.mu.Lock()
	n.generation[s]++
	close(n.changed)
	n.changed = make(chan struct{})
	n.mu.Unlock()
}

// Listener creates a listener that observes changes made after this call
func (n *Notifier) Listener() *Listener {
	n.mu.Lock()
	defer n.mu.Unlock()

	return &Listener{
		notifier: n,
		seen:     n.generation,
	}
}

// Listener is a per-client registration on every subsystem.
// A Listener must not be used from more than one goroutine at a time.
type Listener struct {
	notifier *Notifier
	seen     [numSubsystems]uint64
}

// Listen blocks until at least one subsystem in subset changed since it was
// last returned by this listener. It returns every such subsystem in ordinal
// order. An empty subset waits on all subsystems.
func (l *Listener) Listen(ctx context.Context, subset []Subsystem) ([]Subsystem, error) {
	var wanted [numSubsystems]bool
	if len(subset) == 0 {
		for i := range wanted {
			wanted[i] = true
		}
	}
	for _, s := range subset {
		if s >= 0 && s < numSubsystems {
			wanted[s] = true
		}
	}

	for {
		fired, wait := l.poll(&wanted)
		if len(fired) > 0 {
			return fired, nil
		}

		l.notifier.waiting.Add(1)
		select {
		case <-ctx.Done():
			l.notifier.waiting.Add(-1)
			return nil, ctx.Err()
		case <-wait:
			l.notifier.waiting.Add(-1)
		}
	}
}

// Waiting returns the number of listeners blocked in Listen
func (n *Notifier) Waiting() int {
	return int(n.waiting.Load())
}

// Pending reports whether any subsystem in subset has an unobserved change
func (l *Listener) Pending(subset []Subsystem) bool {
	l.notifier.mu.Lock()
	defer l.notifier.mu.Unlock()

	if len(subset) == 0 {
		subset = All()
	}
	for _, s := range subset {
		if s >= 0 && s < numSubsystems && l.notifier.generation[s] > l.seen[s] {
			return true
		}
	}
	return false
}

// poll collects changed subsystems and returns the channel to wait on if none
func (l *Listener) poll(wanted *[numSubsystems]bool) ([]Subsystem, <-chan struct{}) {
	l.notifier.mu.Lock()
	defer l.notifier.mu.Unlock()

	var fired []Subsystem
	for i := range wanted {
		if !wanted[i] {
			continue
		}
		if gen := l.notifier.generation[i]; gen > l.seen[i] {
			l.seen[i] = gen
			fired = append(fired, Subsystem(i))
		}
	}
	return fired, l.notifier.changed
}
