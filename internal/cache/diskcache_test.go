package cache_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/cache"
	"github.com/famish99/jellympd/internal/testutil"
)

func TestDiskCache_PutGet(t *testing.T) {
	c, err := cache.NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)

	_, ok := c.Get("song")
	assert.False(t, ok)

	path, err := c.Put("song", strings.NewReader("audio-bytes"))
	require.NoError(t, err)

	got, ok := c.Get("song")
	require.True(t, ok)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
	assert.Equal(t, int64(len("audio-bytes")), c.Size())
}

func TestDiskCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := cache.NewDiskCache(t.TempDir(), 10)
	require.NoError(t, err)

	_, err = c.Put("a", strings.NewReader("aaaa"))
	require.NoError(t, err)
	_, err = c.Put("b", strings.NewReader("bbbb"))
	require.NoError(t, err)

	// touch a so b becomes the oldest
	_, ok := c.Get("a")
	require.True(t, ok)

	_, err = c.Put("c", strings.NewReader("cccc"))
	require.NoError(t, err)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(8), c.Size())
}

func TestDiskCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.NewDiskCache(dir, 1<<20)
	require.NoError(t, err)
	_, err = c.Put("song", strings.NewReader("data"))
	require.NoError(t, err)

	reopened, err := cache.NewDiskCache(dir, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
	_, ok := reopened.Get("song")
	assert.True(t, ok)
}

func TestDiskCache_InvalidateAndClear(t *testing.T) {
	c, err := cache.NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)

	_, err = c.Put("a", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = c.Put("b", strings.NewReader("2"))
	require.NoError(t, err)

	require.NoError(t, c.Invalidate("a"))
	require.NoError(t, c.Invalidate("missing"))
	_, ok := c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}

func TestDiskCache_FetchDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "streamed")
	}))
	defer srv.Close()

	c, err := cache.NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		path, err := c.Fetch(context.Background(), "item", srv.URL+"/stream")
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "streamed", string(data))
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestDiskCache_FetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := cache.NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "item", srv.URL)
	assert.ErrorContains(t, err, "HTTP 404")
	assert.Equal(t, 0, c.Len())
}

type staticUpstream struct {
	url string
	err error
}

func (u staticUpstream) Resolve(context.Context, string) (string, error) {
	return u.url, u.err
}

func TestResolver_WarmsCache(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreHTTPGoroutines()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	defer srv.Close()

	c, err := cache.NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)

	r := cache.NewResolver(c, staticUpstream{url: srv.URL})
	defer r.Close()

	uri, err := r.Resolve(context.Background(), "item")
	require.NoError(t, err)
	assert.Equal(t, srv.URL, uri)

	r.Wait()

	uri, err = r.Resolve(context.Background(), "item")
	require.NoError(t, err)
	assert.NotEqual(t, srv.URL, uri)
	_, err = os.Stat(uri)
	assert.NoError(t, err)
}

func TestResolver_UpstreamError(t *testing.T) {
	c, err := cache.NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)

	boom := errors.New("boom")
	r := cache.NewResolver(c, staticUpstream{err: boom})
	defer r.Close()

	_, err = r.Resolve(context.Background(), "item")
	assert.ErrorIs(t, err, boom)
}
