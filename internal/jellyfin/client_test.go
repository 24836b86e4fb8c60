package jellyfin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/jellyfin"
)

type fakeServer struct {
	t        *testing.T
	items    []map[string]any
	views    []map[string]any
	logins   atomic.Int32
	expireAt atomic.Int32 // request count after which the first token expires
	requests atomic.Int32
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Contains(f.t, r.Header.Get("Authorization"), `Client="jellympd"`)
		assert.NotContains(f.t, r.Header.Get("Authorization"), "Token=")

		var body map[string]string
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body)) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if body["Username"] != "alice" || body["Pw"] != "secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		n := f.logins.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"AccessToken": "token-" + strconv.Itoa(int(n)),
			"User":        map[string]any{"Id": "user1", "Name": "alice"},
		})
	})
	mux.HandleFunc("/Users/user1/Views", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"Items": f.views, "TotalRecordCount": len(f.views)})
	})
	mux.HandleFunc("/Users/user1/Items", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		q := r.URL.Query()
		assert.Equal(f.t, "music", q.Get("ParentId"))
		assert.Equal(f.t, "Audio", q.Get("IncludeItemTypes"))
		start, _ := strconv.Atoi(q.Get("StartIndex"))
		limit, _ := strconv.Atoi(q.Get("Limit"))
		end := min(start+limit, len(f.items))
		json.NewEncoder(w).Encode(map[string]any{
			"Items":            f.items[start:end],
			"TotalRecordCount": len(f.items),
			"StartIndex":       start,
		})
	})
	return mux
}

func (f *fakeServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	n := f.requests.Add(1)
	auth := r.Header.Get("Authorization")
	if !strings.Contains(auth, `Token="token-`) {
		http.Error(w, "no token", http.StatusUnauthorized)
		return false
	}
	if expire := f.expireAt.Load(); expire > 0 && n >= expire && strings.Contains(auth, `Token="token-1"`) {
		http.Error(w, "expired", http.StatusUnauthorized)
		return false
	}
	return true
}

func newFake(t *testing.T) (*fakeServer, *httptest.Server) {
	f := &fakeServer{
		t: t,
		views: []map[string]any{
			{"Id": "movies", "Name": "Movies", "Type": "CollectionFolder", "CollectionType": "movies"},
			{"Id": "music", "Name": "Music", "Type": "CollectionFolder", "CollectionType": "music"},
		},
	}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, srv
}

func newClient(t *testing.T, srv *httptest.Server, password string) *jellyfin.Client {
	c, err := jellyfin.NewClient(srv.URL, "alice", password, "device-1", true)
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := jellyfin.NewClient("ftp://example.com", "a", "b", "", true)
	assert.Error(t, err)
}

func TestNewClient_GeneratesDeviceID(t *testing.T) {
	c, err := jellyfin.NewClient("http://localhost:8096", "a", "b", "", true)
	require.NoError(t, err)
	assert.Len(t, c.DeviceID(), 16)
}

func TestAuthenticate(t *testing.T) {
	f, srv := newFake(t)
	c := newClient(t, srv, "secret")

	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, int32(1), f.logins.Load())
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	_, srv := newFake(t)
	c := newClient(t, srv, "wrong")

	err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, jellyfin.ErrUnauthorized)
}

func TestMusicLibrary(t *testing.T) {
	_, srv := newFake(t)
	c := newClient(t, srv, "secret")

	lib, err := c.MusicLibrary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "music", lib.ID)
}

func TestMusicLibrary_Missing(t *testing.T) {
	f, srv := newFake(t)
	f.views = f.views[:1]
	c := newClient(t, srv, "secret")

	_, err := c.MusicLibrary(context.Background())
	assert.ErrorIs(t, err, jellyfin.ErrNoMusicLibrary)
}

func TestFetchItems_Pages(t *testing.T) {
	f, srv := newFake(t)
	for i := 0; i < 5; i++ {
		f.items = append(f.items, map[string]any{
			"Id":           "song" + strconv.Itoa(i),
			"Name":         "Song " + strconv.Itoa(i),
			"Type":         "Audio",
			"Album":        "Album",
			"Artists":      []string{"Artist"},
			"IndexNumber":  i + 1,
			"RunTimeTicks": int64(i+1) * 10_000_000,
			"PremiereDate": "2001-02-03T00:00:00.0000000Z",
		})
	}
	c := newClient(t, srv, "secret")
	c.PageSize = 2

	items, err := c.FetchItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 5)

	assert.Equal(t, "song0", items[0].ID)
	assert.Equal(t, catalog.Kind("Audio"), items[0].Type)
	assert.Equal(t, []string{"Artist"}, items[0].Artists)
	require.NotNil(t, items[4].IndexNumber)
	assert.Equal(t, 5, *items[4].IndexNumber)
	assert.Equal(t, 5*time.Second, items[4].Duration)
	require.NotNil(t, items[0].PremiereDate)
	assert.Equal(t, 2001, items[0].PremiereDate.Year())
}

func TestFetchItems_Empty(t *testing.T) {
	_, srv := newFake(t)
	c := newClient(t, srv, "secret")

	items, err := c.FetchItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpiredSessionIsRenewed(t *testing.T) {
	f, srv := newFake(t)
	c := newClient(t, srv, "secret")

	_, err := c.Views(context.Background())
	require.NoError(t, err)

	f.expireAt.Store(f.requests.Load() + 1)
	_, err = c.Views(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.logins.Load())
}

func TestResolve(t *testing.T) {
	_, srv := newFake(t)
	c := newClient(t, srv, "secret")

	uri, err := c.Resolve(context.Background(), "song1")
	require.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "/Audio/song1/universal", u.Path)
	assert.Equal(t, "token-1", u.Query().Get("api_key"))
	assert.Equal(t, "user1", u.Query().Get("UserId"))
	assert.Equal(t, "device-1", u.Query().Get("DeviceId"))
	assert.NotEmpty(t, u.Query().Get("Container"))
}

func TestDateLayouts(t *testing.T) {
	for _, raw := range []string{
		`"2020-05-06T07:08:09.1234567Z"`,
		`"2020-05-06T07:08:09.1234567"`,
		`"2020-05-06T07:08:09"`,
		`"2020-05-06"`,
	} {
		var d jellyfin.Date
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.Equal(t, time.May, d.Month(), raw)
		assert.Equal(t, 6, d.Day(), raw)
	}

	var d jellyfin.Date
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
}

func TestErrorIs(t *testing.T) {
	err := &jellyfin.Error{StatusCode: 404, Message: "Item not found"}
	assert.ErrorIs(t, err, jellyfin.ErrNotFound)
	assert.NotErrorIs(t, err, jellyfin.ErrUnauthorized)
}
