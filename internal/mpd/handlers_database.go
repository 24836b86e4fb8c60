package mpd

import (
	"sort"
	"strings"
	"time"

	"github.com/famish99/jellympd/internal/catalog"
)

// query runs a find/search style query against the whole library
func (c *conn) query(args []string, caseSensitive bool) ([]*catalog.Item, error) {
	q, err := ParseQuery(args)
	if err != nil {
		return nil, err
	}
	return q.Apply(c.server.library.Items(), caseSensitive), nil
}

func (c *conn) writeItems(items []*catalog.Item) *Response {
	resp := NewResponse()
	for _, it := range items {
		resp.Item(it, c.tags)
	}
	return resp
}

func (c *conn) enqueue(items []*catalog.Item) error {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	_, err := c.server.player.AddAll(ids)
	return err
}

// cmdFind handles the 'find' command (exact, case sensitive)
func cmdFind(c *conn, args []string) (*Response, error) {
	items, err := c.query(args, true)
	if err != nil {
		return nil, err
	}
	return c.writeItems(items), nil
}

// cmdSearch handles the 'search' command (case insensitive)
func cmdSearch(c *conn, args []string) (*Response, error) {
	items, err := c.query(args, false)
	if err != nil {
		return nil, err
	}
	return c.writeItems(items), nil
}

// cmdFindAdd handles the 'findadd' command
func cmdFindAdd(c *conn, args []string) (*Response, error) {
	items, err := c.query(args, true)
	if err != nil {
		return nil, err
	}
	return nil, c.enqueue(items)
}

// cmdSearchAdd handles the 'searchadd' command
func cmdSearchAdd(c *conn, args []string) (*Response, error) {
	items, err := c.query(args, false)
	if err != nil {
		return nil, err
	}
	return nil, c.enqueue(items)
}

// cmdLsInfo handles the 'lsinfo' command
// Lists the subdirectories and songs of a directory, or a single song
func cmdLsInfo(c *conn, args []string) (*Response, error) {
	var path string
	if len(args) > 0 {
		path = strings.Trim(args[0], "/")
	}

	node, ok := c.server.library.Lookup(path)
	if !ok {
		if it, ok := c.server.library.Get(path); ok {
			return NewResponse().Item(it, c.tags), nil
		}
		return nil, errNoExist("No such directory")
	}

	resp := NewResponse()
	for _, child := range node.Children {
		if child.IsDir() {
			resp.Field("directory", joinPath(path, child.Name))
			continue
		}
		if it, ok := c.server.library.Get(child.ItemID); ok {
			resp.Item(it, c.tags)
		}
	}
	return resp, nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// cmdList handles the 'list' command: list TAG [FILTER...]
// Prints the distinct values of TAG over the matching songs, sorted
func cmdList(c *conn, args []string) (*Response, error) {
	listFiles := strings.EqualFold(args[0], "file")

	var tag catalog.Tag
	if !listFiles {
		var err error
		if tag, err = parseTag(args[0]); err != nil {
			return nil, err
		}
	}

	filterArgs := args[1:]
	// legacy form: "list album ARTIST"
	if tag == catalog.Album && !listFiles && len(filterArgs) == 1 && !strings.HasPrefix(filterArgs[0], "(") {
		filterArgs = []string{catalog.Artist.String(), filterArgs[0]}
	}

	var filter Filter = And{}
	if len(filterArgs) > 0 {
		var err error
		if filter, err = ParseFilter(filterArgs); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{})
	for _, it := range c.server.library.Items() {
		if !filter.Match(it, true) {
			continue
		}
		if listFiles {
			seen[it.ID] = struct{}{}
			continue
		}
		values, _ := it.TagValues(tag)
		for _, v := range values {
			if v != "" {
				seen[v] = struct{}{}
			}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)

	key := "file"
	if !listFiles {
		key = tag.String()
	}
	return NewResponse().RepeatedField(key, values), nil
}

// cmdCount handles the 'count' command
func cmdCount(c *conn, args []string) (*Response, error) {
	filter, err := ParseFilter(args)
	if err != nil {
		return nil, err
	}

	var (
		songs    int
		playtime time.Duration
	)
	for _, it := range c.server.library.Items() {
		if filter.Match(it, true) {
			songs++
			playtime += it.Duration
		}
	}

	resp := NewResponse()
	resp.Field("songs", songs)
	resp.Field("playtime", int64(playtime.Seconds()))
	return resp, nil
}

// cmdUpdate handles the 'update' command
// The whole library is refreshed in the background; the path is ignored
func cmdUpdate(c *conn, _ []string) (*Response, error) {
	job, err := c.server.library.StartRefresh(c.server.ctx)
	if err != nil {
		return nil, err
	}
	return NewResponse().Field("updating_db", job), nil
}

// cmdListPlaylists handles the 'listplaylists' command
// Stored playlists are not supported, so the list is always empty
func cmdListPlaylists(_ *conn, _ []string) (*Response, error) {
	return NewResponse(), nil
}

// cmdListPlaylistInfo handles the 'listplaylistinfo' command. There are no
// stored playlists, so every name is unknown.
func cmdListPlaylistInfo(_ *conn, _ []string) (*Response, error) {
	return nil, errNoExist("No such playlist")
}
