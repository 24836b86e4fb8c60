package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/catalog"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want catalog.Tag
	}{
		{"artist", catalog.Artist},
		{"ARTIST", catalog.Artist},
		{"AlbumArtist", catalog.AlbumArtist},
		{"albumartist", catalog.AlbumArtist},
		{"musicbrainz_trackid", 0},
		{"OriginalDate", catalog.OriginalDate},
		{"label", catalog.Label},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := catalog.ParseTag(tt.in)
			if tt.in == "musicbrainz_trackid" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTag_String(t *testing.T) {
	assert.Equal(t, "AlbumArtist", catalog.AlbumArtist.String())
	assert.Equal(t, "MovementNumber", catalog.MovementNumber.String())
	assert.Len(t, catalog.AllTags(), 22)
}

func TestItem_TagValues(t *testing.T) {
	date := time.Date(1999, 12, 31, 23, 0, 0, 0, time.UTC)
	track, disc := 7, 2
	it := catalog.Item{
		ID:                "id",
		Name:              "Song",
		Album:             "Record",
		Artists:           []string{"A", "B"},
		Genres:            []string{"Jazz"},
		PremiereDate:      &date,
		IndexNumber:       &track,
		ParentIndexNumber: &disc,
	}

	tests := []struct {
		tag     catalog.Tag
		want    []string
		present bool
	}{
		{catalog.Artist, []string{"A", "B"}, true},
		{catalog.Album, []string{"Record"}, true},
		{catalog.AlbumArtist, []string{}, true},
		{catalog.Title, []string{"Song"}, true},
		{catalog.Name, []string{"Song"}, true},
		{catalog.Genre, []string{"Jazz"}, true},
		{catalog.Date, []string{"1999-12-31"}, true},
		{catalog.Track, []string{"7"}, true},
		{catalog.Disc, []string{"2"}, true},
		{catalog.Composer, nil, false},
		{catalog.Mood, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			got, ok := it.TagValues(tt.tag)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItem_TagValuesEmptyArtists(t *testing.T) {
	it := catalog.Item{ID: "id"}

	got, ok := it.TagValues(catalog.Artist)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
