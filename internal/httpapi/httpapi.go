// Package httpapi serves a small JSON view of the daemon and bridges
// subsystem change events to websocket clients.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/beeper/libserv/pkg/requestlog"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/events"
	"github.com/famish99/jellympd/internal/player"
)

// Library is the part of the catalog the API reads
type Library interface {
	Get(id string) (*catalog.Item, bool)
	StartRefresh(ctx context.Context) (int, error)
	Updating() (int, bool)
	Stats() catalog.Stats
}

// Server is the HTTP status API
type Server struct {
	Router *chi.Mux

	player   *player.Player
	library  Library
	notifier *events.Notifier

	mu     sync.Mutex
	server *http.Server
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the API and its routes
func New(p *player.Player, library Library, notifier *events.Notifier) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		player:   p,
		library:  library,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.Router = chi.NewRouter()
	s.Router.Use(hlog.NewHandler(log.Logger.With().Str("component", "http").Logger()))
	s.Router.Use(middleware.Recoverer)

	s.Router.Group(func(r chi.Router) {
		r.Use(requestlog.AccessLogger(false))
		r.Get("/status", s.getStatus)
		r.Get("/queue", s.getQueue)
		r.Post("/update", s.postUpdate)
	})
	// websocket sessions are long lived and log their own lifecycle
	s.Router.Get("/events", s.getEvents)

	return s
}

// Start listens on addr and serves in the background
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	srv := s.server
	s.mu.Unlock()

	log.Info().Str("addr", listener.Addr().String()).Msg("HTTP API listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP API stopped")
		}
	}()
	return nil
}

// Shutdown ends websocket sessions and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

type statusResponse struct {
	player.Status
	UpdatingDB *int `json:"updating_db,omitempty"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.player.Status()}
	if job, ok := s.library.Updating(); ok {
		resp.UpdatingDB = &job
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type queueEntry struct {
	Pos      int      `json:"pos"`
	ID       int      `json:"id"`
	ItemID   string   `json:"item_id"`
	Title    string   `json:"title,omitempty"`
	Artists  []string `json:"artists,omitempty"`
	Album    string   `json:"album,omitempty"`
	Duration float64  `json:"duration,omitempty"`
	Current  bool     `json:"current,omitempty"`
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	queue := s.player.Queue()
	current, _, hasCurrent := queue.Current()

	entries := queue.List()
	out := make([]queueEntry, len(entries))
	for pos, entry := range entries {
		out[pos] = queueEntry{
			Pos:     pos,
			ID:      entry.ID,
			ItemID:  entry.ItemID,
			Current: hasCurrent && pos == current,
		}
		if it, ok := s.library.Get(entry.ItemID); ok {
			out[pos].Title = it.Name
			out[pos].Artists = it.Artists
			out[pos].Album = it.Album
			out[pos].Duration = it.Duration.Seconds()
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) postUpdate(w http.ResponseWriter, r *http.Request) {
	job, err := s.library.StartRefresh(s.ctx)
	switch {
	case errors.Is(err, catalog.ErrUpdateRunning):
		writeJSON(w, r, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		hlog.FromRequest(r).Err(err).Msg("Failed to start update")
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, r, http.StatusAccepted, map[string]int{"updating_db": job})
	}
}

// getEvents streams the name of every changed subsystem as a text message
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	// registered before the handshake so no change after it is missed
	listener := s.notifier.Listener()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	logger.Debug().Str("remote", r.RemoteAddr).Msg("Websocket client connected")
	defer logger.Debug().Str("remote", r.RemoteAddr).Msg("Websocket client disconnected")

	// CloseRead cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	for {
		changed, err := listener.Listen(ctx, nil)
		if err != nil {
			if s.ctx.Err() != nil {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			return
		}
		for _, subsystem := range changed {
			if err := conn.Write(ctx, websocket.MessageText, []byte(subsystem.String())); err != nil {
				logger.Debug().Err(err).Msg("Websocket write failed")
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to write response")
	}
}
