package mpd

import (
	"strconv"

	"github.com/famish99/jellympd/internal/playlist"
)

// writeEntry appends the song block of a queue entry
func (c *conn) writeEntry(resp *Response, pos int, entry playlist.Entry) {
	if it, ok := c.server.library.Get(entry.ItemID); ok {
		resp.Item(it, c.tags)
	} else {
		// the item vanished from the library after it was queued
		resp.Field("file", entry.ItemID)
	}
	resp.Field("Pos", pos)
	resp.Field("Id", entry.ID)
}

func (c *conn) writeEntries(resp *Response, entries []playlist.Entry, offset int) {
	for i, entry := range entries {
		c.writeEntry(resp, offset+i, entry)
	}
}

// resolveURI maps a song id or a directory path to the item ids it names
func (c *conn) resolveURI(uri string) ([]string, error) {
	if it, ok := c.server.library.Get(uri); ok {
		return []string{it.ID}, nil
	}
	if node, ok := c.server.library.Lookup(uri); ok && node.IsDir() {
		return node.ItemIDs(), nil
	}
	return nil, errNoExist("No such directory")
}

// addItems enqueues items in order. With a position, the first item lands
// there and the rest follow it.
func (c *conn) addItems(itemIDs []string, pos *playlist.Position) ([]int, error) {
	p := c.server.player
	if pos == nil || len(itemIDs) == 0 {
		return p.AddAll(itemIDs)
	}

	first, err := p.Add(itemIDs[0], pos)
	if err != nil {
		return nil, err
	}
	ids := []int{first}

	at, _, ok := p.Queue().GetByID(first)
	if !ok {
		return ids, nil
	}
	for i, itemID := range itemIDs[1:] {
		id, err := p.Add(itemID, &playlist.Position{Kind: playlist.Absolute, N: at + 1 + i})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalPosition(args []string) (*playlist.Position, error) {
	if len(args) < 2 {
		return nil, nil
	}
	pos, err := playlist.ParsePosition(args[1])
	if err != nil {
		return nil, errArg("%s", err)
	}
	return &pos, nil
}

// cmdAdd handles the 'add' command: add URI [POS]
// URI is a song id or a directory, which adds everything below it
func cmdAdd(c *conn, args []string) (*Response, error) {
	pos, err := parseOptionalPosition(args)
	if err != nil {
		return nil, err
	}
	itemIDs, err := c.resolveURI(args[0])
	if err != nil {
		return nil, err
	}
	if _, err := c.addItems(itemIDs, pos); err != nil {
		return nil, err
	}
	return NewResponse(), nil
}

// cmdAddID handles the 'addid' command: addid URI [POS]
// Returns the queue id of the new entry
func cmdAddID(c *conn, args []string) (*Response, error) {
	pos, err := parseOptionalPosition(args)
	if err != nil {
		return nil, err
	}
	if _, ok := c.server.library.Get(args[0]); !ok {
		return nil, errNoExist("No such song")
	}

	id, err := c.server.player.Add(args[0], pos)
	if err != nil {
		return nil, err
	}
	return NewResponse().Field("Id", id), nil
}

// cmdDelete handles the 'delete' command: delete POS or START:END
func cmdDelete(c *conn, args []string) (*Response, error) {
	start, end, err := parseRange(args[0])
	if err != nil {
		return nil, err
	}

	length := c.server.player.Queue().Len()
	if end < 0 || end > length {
		end = length
	}
	if start >= length {
		return nil, errArg("Bad song index")
	}

	// back to front so the remaining positions stay valid
	for pos := end - 1; pos >= start; pos-- {
		if err := c.server.player.Delete(pos); err != nil {
			return nil, err
		}
	}
	return NewResponse(), nil
}

// cmdDeleteID handles the 'deleteid' command
func cmdDeleteID(c *conn, args []string) (*Response, error) {
	id, err := parseUint(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.server.player.DeleteID(id)
}

// cmdClear handles the 'clear' command
func cmdClear(c *conn, _ []string) (*Response, error) {
	c.server.player.Clear()
	return NewResponse(), nil
}

// cmdPlaylistInfo handles the 'playlistinfo' command
// Accepts no argument, a position or a START:END range
func cmdPlaylistInfo(c *conn, args []string) (*Response, error) {
	entries := c.server.player.Queue().List()
	resp := NewResponse()

	if len(args) == 0 || args[0] == "-1" {
		c.writeEntries(resp, entries, 0)
		return resp, nil
	}

	start, end, err := parseRange(args[0])
	if err != nil {
		return nil, err
	}
	if end < 0 || end > len(entries) {
		end = len(entries)
	}
	if start >= len(entries) {
		return nil, errArg("Bad song index")
	}

	c.writeEntries(resp, entries[start:end], start)
	return resp, nil
}

// cmdPlaylistID handles the 'playlistid' command
func cmdPlaylistID(c *conn, args []string) (*Response, error) {
	queue := c.server.player.Queue()
	resp := NewResponse()

	if len(args) == 0 {
		c.writeEntries(resp, queue.List(), 0)
		return resp, nil
	}

	id, err := parseUint(args[0])
	if err != nil {
		return nil, err
	}
	pos, entry, ok := queue.GetByID(id)
	if !ok {
		return nil, playlist.ErrNoSuchSong
	}
	c.writeEntry(resp, pos, entry)
	return resp, nil
}

// cmdPlaylist handles the deprecated 'playlist' command: one "POS:file: ID"
// line per queue entry
func cmdPlaylist(c *conn, _ []string) (*Response, error) {
	resp := NewResponse()
	for pos, entry := range c.server.player.Queue().List() {
		resp.IndexedField(pos, "file", entry.ItemID)
	}
	return resp, nil
}

// cmdPlChanges handles the 'plchanges' command: plchanges VERSION [START:END]
// The whole queue is reported whenever it changed after VERSION
func cmdPlChanges(c *conn, args []string) (*Response, error) {
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return nil, errArg("unsigned integer expected: %s", args[0])
	}

	entries := c.server.player.Queue().ChangesSince(uint32(version))
	start, end := 0, len(entries)
	if len(args) > 1 {
		if start, end, err = parseRange(args[1]); err != nil {
			return nil, err
		}
		if end < 0 || end > len(entries) {
			end = len(entries)
		}
		start = min(start, end)
	}

	resp := NewResponse()
	c.writeEntries(resp, entries[start:end], start)
	return resp, nil
}

// cmdCurrentSong handles the 'currentsong' command
func cmdCurrentSong(c *conn, _ []string) (*Response, error) {
	resp := NewResponse()
	if pos, entry, ok := c.server.player.Queue().Current(); ok {
		c.writeEntry(resp, pos, entry)
	}
	return resp, nil
}
