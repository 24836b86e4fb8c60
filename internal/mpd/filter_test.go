package mpd_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/mpd"
)

func intPtr(n int) *int { return &n }

func TestParseFilter_LegacyMatchesStructured(t *testing.T) {
	legacy, err := mpd.ParseFilter([]string{"artist", "foo", "album", "bar"})
	require.NoError(t, err)

	structured, err := mpd.ParseFilter([]string{"((artist == 'foo') AND (album == 'bar'))"})
	require.NoError(t, err)

	want := mpd.And{
		mpd.TagMatch{Tag: catalog.Artist, Value: "foo"},
		mpd.TagMatch{Tag: catalog.Album, Value: "bar"},
	}
	assert.Equal(t, want, legacy)
	assert.Equal(t, want, structured)
}

func TestParseFilter_Expressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want mpd.Filter
	}{
		{"base", "(base 'A/B')", mpd.BaseDir{Path: "A/B"}},
		{"negated base", "(!(base 'A/B'))", mpd.Not{Filter: mpd.BaseDir{Path: "A/B"}}},
		{"mismatch", "(genre != 'Jazz')", mpd.TagMismatch{Tag: catalog.Genre, Value: "Jazz"}},
		{"uri", `(file == "abc123")`, mpd.URIMatch{URI: "abc123"}},
		{"any", "(any == 'x')", mpd.AnyMatch{Value: "x"}},
		{"escaped quote", `(Artist == "foo\'bar\"")`, mpd.TagMatch{Tag: catalog.Artist, Value: `foo'bar"`}},
		{
			"and chain nests to the right",
			"((artist == 'a') AND (album == 'b') AND (title == 'c'))",
			mpd.And{
				mpd.TagMatch{Tag: catalog.Artist, Value: "a"},
				mpd.And{
					mpd.TagMatch{Tag: catalog.Album, Value: "b"},
					mpd.TagMatch{Tag: catalog.Title, Value: "c"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := mpd.ParseFilter([]string{tt.expr})
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	tests := [][]string{
		nil,
		{"artist"},
		{"bogus", "x"},
		{"(artist == 'x'"},
		{"(artist ~= 'x')"},
		{"(artist == 'x') trailing"},
		{"()"},
		{"(file != 'x')"},
		{"((artist == 'a') AND)"},
	}

	for _, args := range tests {
		_, err := mpd.ParseFilter(args)
		var perr *mpd.Error
		if assert.ErrorAs(t, err, &perr, "args %q", args) {
			assert.Equal(t, mpd.AckArg, perr.Code)
		}
	}
}

func TestFilter_Match(t *testing.T) {
	it := &catalog.Item{
		ID:          "s1",
		Name:        "Planet Telex",
		Artists:     []string{"Radiohead"},
		Album:       "The Bends",
		Genres:      []string{"Rock", "Alternative"},
		IndexNumber: intPtr(1),
	}

	assert.True(t, mpd.TagMatch{Tag: catalog.Genre, Value: "Alternative"}.Match(it, true))
	assert.False(t, mpd.TagMatch{Tag: catalog.Artist, Value: "radiohead"}.Match(it, true))
	assert.True(t, mpd.TagMatch{Tag: catalog.Artist, Value: "radiohead"}.Match(it, false))

	// an absent tag only matches the empty string
	assert.True(t, mpd.TagMatch{Tag: catalog.Date, Value: ""}.Match(it, true))
	assert.False(t, mpd.TagMatch{Tag: catalog.Date, Value: "1995"}.Match(it, true))

	assert.True(t, mpd.TagMismatch{Tag: catalog.Album, Value: "Pablo Honey"}.Match(it, true))
	assert.True(t, mpd.AnyMatch{Value: "Planet Telex"}.Match(it, true))
	assert.True(t, mpd.URIMatch{URI: "s1"}.Match(it, true))
	assert.True(t, mpd.BaseDir{Path: "Radiohead"}.Match(it, true))
	assert.False(t, mpd.BaseDir{Path: "Radiohead/OK"}.Match(it, true))
	assert.False(t, mpd.Not{Filter: mpd.URIMatch{URI: "s1"}}.Match(it, true))
	assert.True(t, mpd.And{}.Match(it, true))
}

func TestParseQuery(t *testing.T) {
	q, err := mpd.ParseQuery([]string{"artist", "x", "sort", "-Track", "window", "1:3"})
	require.NoError(t, err)

	assert.Equal(t, mpd.And{mpd.TagMatch{Tag: catalog.Artist, Value: "x"}}, q.Filter)
	require.NotNil(t, q.Sort)
	assert.Equal(t, catalog.Track, *q.Sort)
	assert.True(t, q.Descending)
	assert.Equal(t, &mpd.Window{Start: 1, End: 3}, q.Window)

	_, err = mpd.ParseQuery([]string{"(artist == 'x')", "sort"})
	assert.Error(t, err)
}

func TestQuery_Apply(t *testing.T) {
	items := []*catalog.Item{
		{ID: "a", Artists: []string{"x"}, IndexNumber: intPtr(2), Duration: time.Minute},
		{ID: "b", Artists: []string{"x"}, IndexNumber: intPtr(1)},
		{ID: "c", Artists: []string{"y"}, IndexNumber: intPtr(3)},
		{ID: "d", Artists: []string{"x"}, IndexNumber: intPtr(3)},
	}

	q, err := mpd.ParseQuery([]string{"artist", "x", "sort", "Track", "window", "0:2"})
	require.NoError(t, err)

	var ids []string
	for _, it := range q.Apply(items, true) {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"b", "a"}, ids)
}
