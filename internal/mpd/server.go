// Package mpd implements the Music Player Daemon text protocol on top of the
// catalog and the player.
package mpd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/events"
	"github.com/famish99/jellympd/internal/player"
)

// ProtocolVersion is announced in the connection greeting
const ProtocolVersion = "0.23.0"

// Library is the read side of the catalog plus background refresh
type Library interface {
	Get(id string) (*catalog.Item, bool)
	Items() []*catalog.Item
	Lookup(path string) (*catalog.Node, bool)
	StartRefresh(ctx context.Context) (int, error)
	Updating() (int, bool)
	Stats() catalog.Stats
}

const (
	DefaultMaxLineLength      = 64 * 1024
	DefaultMaxCommandListSize = 2048 * 1024
)

// ServerOptions tunes connection handling
type ServerOptions struct {
	// IdleTimeout closes a connection that sends nothing for this long
	// outside of idle. Zero disables the deadline.
	IdleTimeout time.Duration

	// MaxLineLength is the longest accepted request line in bytes. A longer
	// line closes the connection.
	MaxLineLength int

	// MaxCommandListSize caps the bytes buffered by one command list
	MaxCommandListSize int
}

// Server implements MPD protocol server
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	addr     string
	running  bool
	conns    map[*conn]struct{}

	library  Library
	player   *player.Player
	notifier *events.Notifier
	opts     ServerOptions
	started  time.Time

	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new MPD protocol server. notifier must be the one the
// player and library report changes to.
func NewServer(addr string, library Library, p *player.Player, notifier *events.Notifier, opts ServerOptions) *Server {
	if notifier == nil {
		notifier = events.NewNotifier()
	}
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	if opts.MaxCommandListSize <= 0 {
		opts.MaxCommandListSize = DefaultMaxCommandListSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     addr,
		conns:    make(map[*conn]struct{}),
		library:  library,
		player:   p,
		notifier: notifier,
		opts:     opts,
		started:  time.Now(),
		log:      log.With().Str("component", "mpd").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the MPD server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start MPD server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.log.Info().Str("addr", listener.Addr().String()).Msg("MPD server listening")

	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// Addr returns the bound listen address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every client connection, then waits for the
// connection goroutines to exit
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()

	err := s.listener.Close()
	for c := range s.conns {
		_ = c.nc.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("MPD server stopped")
	return err
}

// Uptime returns how long the server has existed
func (s *Server) Uptime() time.Duration {
	return time.Since(s.started)
}

const maxAcceptDelay = time.Second

// acceptLoop accepts incoming connections. Accept errors such as running
// out of file descriptors are retried with a growing delay.
func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	var delay time.Duration
	for {
		nc, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("Accept error")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-s.ctx.Done():
				timer.Stop()
				return
			}
			continue
		}
		delay = 0

		c := newConn(s, nc)
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			_ = nc.Close()
			continue
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.forget(c)
			c.serve()
		}()
	}
}

func (s *Server) forget(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}
