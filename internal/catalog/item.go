// Package catalog mirrors the remote music library into an in-memory index
// with a directory view for browsing.
package catalog

import (
	"strings"
	"time"
)

// Kind is the remote entity type of an item
type Kind string

const (
	KindAudio            Kind = "Audio"
	KindMusicAlbum       Kind = "MusicAlbum"
	KindMusicArtist      Kind = "MusicArtist"
	KindPlaylist         Kind = "Playlist"
	KindCollectionFolder Kind = "CollectionFolder"
	KindFolder           Kind = "Folder"
)

// Item is a remote media item. Items are immutable once fetched; a refresh
// replaces them wholesale.
type Item struct {
	ID                string        `json:"id"`
	Name              string        `json:"name,omitempty"`
	Type              Kind          `json:"type"`
	CollectionType    string        `json:"collection_type,omitempty"`
	Album             string        `json:"album,omitempty"`
	Artists           []string      `json:"artists,omitempty"`
	AlbumArtist       string        `json:"album_artist,omitempty"`
	Genres            []string      `json:"genres,omitempty"`
	IndexNumber       *int          `json:"index_number,omitempty"`
	ParentIndexNumber *int          `json:"parent_index_number,omitempty"`
	PremiereDate      *time.Time    `json:"premiere_date,omitempty"`
	Duration          time.Duration `json:"duration,omitempty"`
}

// Dirs returns the directory paths the item is listed under
func (it *Item) Dirs() []string {
	if len(it.Artists) == 0 {
		return []string{""}
	}

	dirs := make([]string, 0, len(it.Artists))
	for _, artist := range it.Artists {
		dir := sanitize(artist)
		if it.Album != "" {
			dir += "/" + sanitize(it.Album)
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// InDir reports whether the item lives at or below dir
func (it *Item) InDir(dir string) bool {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return true
	}
	for _, d := range it.Dirs() {
		if d == dir || strings.HasPrefix(d, dir+"/") {
			return true
		}
	}
	return false
}

// displayName is the node name used in the directory tree
func (it *Item) displayName() string {
	if it.Name != "" {
		return sanitize(it.Name)
	}
	return it.ID
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, "/", "+")
}
