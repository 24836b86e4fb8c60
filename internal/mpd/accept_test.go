package mpd

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/testutil"
)

// failingListener fails the first fails calls to Accept, then reports
// itself closed
type failingListener struct {
	mu    sync.Mutex
	fails int
	calls []time.Time
}

func (l *failingListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, time.Now())
	if len(l.calls) <= l.fails {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func (l *failingListener) Close() error   { return nil }
func (l *failingListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func (l *failingListener) accepts() []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Time(nil), l.calls...)
}

func runAcceptLoop(s *Server, l net.Listener) <-chan struct{} {
	s.running = true
	s.wg.Add(1)
	go s.acceptLoop(l)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	return done
}

func TestAcceptLoop_BacksOffOnErrors(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	s := NewServer("127.0.0.1:0", nil, nil, nil, ServerOptions{})
	l := &failingListener{fails: 3}

	select {
	case <-runAcceptLoop(s, l):
	case <-time.After(5 * time.Second):
		t.Fatal("accept loop did not exit")
	}

	calls := l.accepts()
	require.Len(t, calls, 4)
	// 5ms, 10ms and 20ms between the retries
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), 5*time.Millisecond)
	assert.GreaterOrEqual(t, calls[3].Sub(calls[2]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, calls[3].Sub(calls[0]), 35*time.Millisecond)
}

func TestAcceptLoop_StopInterruptsBackoff(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	s := NewServer("127.0.0.1:0", nil, nil, nil, ServerOptions{})
	l := &failingListener{fails: 1 << 20}
	done := runAcceptLoop(s, l)

	require.Eventually(t, func() bool { return len(l.accepts()) >= 3 }, 2*time.Second, time.Millisecond)
	s.cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("accept loop kept retrying after the server stopped")
	}
}

func TestNewServer_DefaultLimits(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil, nil, nil, ServerOptions{})
	assert.Equal(t, DefaultMaxLineLength, s.opts.MaxLineLength)
	assert.Equal(t, DefaultMaxCommandListSize, s.opts.MaxCommandListSize)

	s = NewServer("127.0.0.1:0", nil, nil, nil, ServerOptions{MaxLineLength: 128})
	assert.Equal(t, 128, s.opts.MaxLineLength)
}
