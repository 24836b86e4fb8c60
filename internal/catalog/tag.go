package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag is an MPD metadata field
type Tag int

const (
	Artist Tag = iota
	Album
	AlbumArtist
	Title
	Track
	Name
	Genre
	Mood
	Date
	OriginalDate
	Composer
	Performer
	Conductor
	Work
	Ensemble
	Movement
	MovementNumber
	Location
	Grouping
	Comment
	Disc
	Label

	numTags
)

var tagNames = [numTags]string{
	Artist:         "Artist",
	Album:          "Album",
	AlbumArtist:    "AlbumArtist",
	Title:          "Title",
	Track:          "Track",
	Name:           "Name",
	Genre:          "Genre",
	Mood:           "Mood",
	Date:           "Date",
	OriginalDate:   "OriginalDate",
	Composer:       "Composer",
	Performer:      "Performer",
	Conductor:      "Conductor",
	Work:           "Work",
	Ensemble:       "Ensemble",
	Movement:       "Movement",
	MovementNumber: "MovementNumber",
	Location:       "Location",
	Grouping:       "Grouping",
	Comment:        "Comment",
	Disc:           "Disc",
	Label:          "Label",
}

// String returns the tag name as written on the wire
func (t Tag) String() string {
	if t < 0 || t >= numTags {
		return fmt.Sprintf("tag(%d)", int(t))
	}
	return tagNames[t]
}

// ParseTag resolves a tag name, ignoring ASCII case
func ParseTag(name string) (Tag, error) {
	for i, n := range tagNames {
		if strings.EqualFold(n, name) {
			return Tag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tag type: %s", name)
}

// AllTags returns every tag in declaration order
func AllTags() []Tag {
	tags := make([]Tag, numTags)
	for i := range tags {
		tags[i] = Tag(i)
	}
	return tags
}

// TagValues returns the values of a tag for this item. The second result is
// false when the tag is not applicable to catalog items, which is different
// from an applicable tag with no values (an item with no artists).
func (it *Item) TagValues(t Tag) ([]string, bool) {
	switch t {
	case Artist:
		if it.Artists == nil {
			return []string{}, true
		}
		return it.Artists, true
	case Album:
		return optional(it.Album), true
	case AlbumArtist:
		return optional(it.AlbumArtist), true
	case Title, Name:
		return optional(it.Name), true
	case Genre:
		if it.Genres == nil {
			return []string{}, true
		}
		return it.Genres, true
	case Date:
		if it.PremiereDate == nil {
			return []string{}, true
		}
		return []string{it.PremiereDate.Format("2006-01-02")}, true
	case Track:
		if it.IndexNumber == nil {
			return []string{}, true
		}
		return []string{strconv.Itoa(*it.IndexNumber)}, true
	case Disc:
		if it.ParentIndexNumber == nil {
			return []string{}, true
		}
		return []string{strconv.Itoa(*it.ParentIndexNumber)}, true
	default:
		return nil, false
	}
}

func optional(value string) []string {
	if value == "" {
		return []string{}
	}
	return []string{value}
}
