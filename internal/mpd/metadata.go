package mpd

import (
	"github.com/famish99/jellympd/internal/catalog"
)

// TagSet is the set of tag types a client wants in song listings
type TagSet uint64

// AllTagSet returns a set with every supported tag enabled
func AllTagSet() TagSet {
	var s TagSet
	for _, t := range catalog.AllTags() {
		s.Enable(t)
	}
	return s
}

func (s TagSet) Has(t catalog.Tag) bool {
	return s&(1<<uint(t)) != 0
}

func (s *TagSet) Enable(t catalog.Tag) {
	*s |= 1 << uint(t)
}

func (s *TagSet) Disable(t catalog.Tag) {
	*s &^= 1 << uint(t)
}

// decoderInfo represents a decoder plugin with its supported formats
type decoderInfo struct {
	plugin    string
	suffixes  []string
	mimeTypes []string
}

// supportedDecoders lists the containers requested from the media server's
// universal stream endpoint
var supportedDecoders = []decoderInfo{
	{
		plugin:    "flac",
		suffixes:  []string{"flac"},
		mimeTypes: []string{"audio/flac", "audio/x-flac"},
	},
	{
		plugin:    "mad",
		suffixes:  []string{"mp3"},
		mimeTypes: []string{"audio/mpeg"},
	},
	{
		plugin:    "faad",
		suffixes:  []string{"aac", "m4a"},
		mimeTypes: []string{"audio/aac", "audio/mp4", "audio/x-m4a"},
	},
	{
		plugin:    "vorbis",
		suffixes:  []string{"ogg", "oga"},
		mimeTypes: []string{"audio/ogg", "audio/vorbis", "application/ogg"},
	},
	{
		plugin:    "opus",
		suffixes:  []string{"opus", "webm", "webma"},
		mimeTypes: []string{"audio/opus", "audio/webm"},
	},
	{
		plugin:    "wave",
		suffixes:  []string{"wav"},
		mimeTypes: []string{"audio/wav", "audio/x-wav"},
	},
}

// cmdTagTypes handles the 'tagtypes' command
// Controls which metadata tags are returned in responses
func cmdTagTypes(c *conn, args []string) (*Response, error) {
	resp := NewResponse()
	if len(args) == 0 {
		for _, tag := range catalog.AllTags() {
			if c.tags.Has(tag) {
				resp.Field("tagtype", tag.String())
			}
		}
		return resp, nil
	}

	switch args[0] {
	case "clear":
		c.tags = 0
	case "all":
		c.tags = AllTagSet()
	case "enable", "disable":
		if len(args) < 2 {
			return nil, errArgCount
		}
		// validate everything before changing anything
		tags := make([]catalog.Tag, 0, len(args)-1)
		for _, name := range args[1:] {
			tag, err := parseTag(name)
			if err != nil {
				return nil, err
			}
			tags = append(tags, tag)
		}
		for _, tag := range tags {
			if args[0] == "enable" {
				c.tags.Enable(tag)
			} else {
				c.tags.Disable(tag)
			}
		}
	default:
		return nil, errArg("unknown sub command %q", args[0])
	}
	return resp, nil
}

// cmdDecoders handles the 'decoders' command
func cmdDecoders(_ *conn, _ []string) (*Response, error) {
	resp := NewResponse()
	for _, decoder := range supportedDecoders {
		resp.Field("plugin", decoder.plugin)
		resp.RepeatedField("suffix", decoder.suffixes)
		resp.RepeatedField("mime_type", decoder.mimeTypes)
	}
	return resp, nil
}
