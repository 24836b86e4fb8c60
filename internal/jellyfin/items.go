package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/famish99/jellympd/internal/catalog"
)

type AuthenticationResult struct {
	AccessToken string `json:"AccessToken"`
	User        User   `json:"User"`
}

type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type ItemsResult struct {
	Items            []BaseItem `json:"Items"`
	TotalRecordCount int        `json:"TotalRecordCount"`
	StartIndex       int        `json:"StartIndex"`
}

type BaseItem struct {
	ID                string   `json:"Id"`
	Name              string   `json:"Name,omitempty"`
	Type              string   `json:"Type"`
	CollectionType    string   `json:"CollectionType,omitempty"`
	Album             string   `json:"Album,omitempty"`
	Artists           []string `json:"Artists,omitempty"`
	AlbumArtist       string   `json:"AlbumArtist,omitempty"`
	Genres            []string `json:"Genres,omitempty"`
	IndexNumber       *int     `json:"IndexNumber,omitempty"`
	ParentIndexNumber *int     `json:"ParentIndexNumber,omitempty"`
	PremiereDate      *Date    `json:"PremiereDate,omitempty"`
	RunTimeTicks      *int64   `json:"RunTimeTicks,omitempty"`
}

// Date accepts the timestamp variants the server emits, with or without a
// zone suffix
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", raw)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

// ticksPerSecond is the resolution of RunTimeTicks (100ns)
const ticksPerSecond = 10_000_000

// CatalogItem converts the wire item into a catalog item
func (b BaseItem) CatalogItem() catalog.Item {
	it := catalog.Item{
		ID:                b.ID,
		Name:              b.Name,
		Type:              catalog.Kind(b.Type),
		CollectionType:    b.CollectionType,
		Album:             b.Album,
		Artists:           b.Artists,
		AlbumArtist:       b.AlbumArtist,
		Genres:            b.Genres,
		IndexNumber:       b.IndexNumber,
		ParentIndexNumber: b.ParentIndexNumber,
	}
	if b.PremiereDate != nil {
		t := b.PremiereDate.Time
		it.PremiereDate = &t
	}
	if b.RunTimeTicks != nil {
		it.Duration = time.Duration(*b.RunTimeTicks) * (time.Second / ticksPerSecond)
	}
	return it
}

// Views returns the user's top-level library views
func (c *Client) Views(ctx context.Context) ([]BaseItem, error) {
	var result ItemsResult
	if err := c.getJSON(ctx, "/Users/{user}/Views", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	return result.Items, nil
}

// MusicLibrary returns the view holding the music collection
func (c *Client) MusicLibrary(ctx context.Context) (*BaseItem, error) {
	views, err := c.Views(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if strings.EqualFold(views[i].CollectionType, "music") {
			return &views[i], nil
		}
	}
	return nil, ErrNoMusicLibrary
}

// FetchItems lists every audio item in the music library, page by page
func (c *Client) FetchItems(ctx context.Context) ([]catalog.Item, error) {
	library, err := c.MusicLibrary(ctx)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx).With().Str("library", library.ID).Logger()
	log.Debug().Msg("Fetching music library")

	var items []catalog.Item
	for start := 0; ; {
		params := url.Values{}
		params.Set("ParentId", library.ID)
		params.Set("Recursive", "true")
		params.Set("IncludeItemTypes", "Audio")
		params.Set("Fields", "Genres,PremiereDate")
		params.Set("StartIndex", strconv.Itoa(start))
		params.Set("Limit", strconv.Itoa(c.PageSize))

		var page ItemsResult
		if err := c.getJSON(ctx, "/Users/{user}/Items", params, &page); err != nil {
			return nil, fmt.Errorf("failed to list items at %d: %w", start, err)
		}

		for _, b := range page.Items {
			items = append(items, b.CatalogItem())
		}
		log.Debug().Int("start", start).Int("count", len(page.Items)).Int("total", page.TotalRecordCount).Msg("Fetched page")

		start += len(page.Items)
		if len(page.Items) == 0 || start >= page.TotalRecordCount {
			break
		}
	}

	return items, nil
}
