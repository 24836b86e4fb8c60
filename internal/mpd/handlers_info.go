package mpd

import (
	"fmt"
	"time"

	"github.com/famish99/jellympd/internal/backends"
	"github.com/famish99/jellympd/internal/player"
)

// statusResponse is the field order of the 'status' command
type statusResponse struct {
	Volume         int            `mpd:"volume"`
	Repeat         bool           `mpd:"repeat"`
	Random         bool           `mpd:"random"`
	Single         bool           `mpd:"single"`
	Consume        bool           `mpd:"consume"`
	Playlist       uint32         `mpd:"playlist"`
	PlaylistLength int            `mpd:"playlistlength"`
	State          string         `mpd:"state"`
	Song           *int           `mpd:"song"`
	SongID         *int           `mpd:"songid"`
	NextSong       *int           `mpd:"nextsong"`
	NextSongID     *int           `mpd:"nextsongid"`
	Time           string         `mpd:"time,omitempty"`
	Elapsed        *time.Duration `mpd:"elapsed"`
	Duration       *time.Duration `mpd:"duration"`
	UpdatingDB     *int           `mpd:"updating_db"`
	Error          string         `mpd:"error,omitempty"`
}

type statsResponse struct {
	Artists    int   `mpd:"artists"`
	Albums     int   `mpd:"albums"`
	Songs      int   `mpd:"songs"`
	Uptime     int64 `mpd:"uptime"`
	Playtime   int64 `mpd:"playtime"`
	DBPlaytime int64 `mpd:"db_playtime"`
	DBUpdate   int64 `mpd:"db_update"`
}

func cmdPing(_ *conn, _ []string) (*Response, error) {
	return NewResponse(), nil
}

// cmdStatus handles the 'status' command
func cmdStatus(c *conn, _ []string) (*Response, error) {
	st := c.server.player.Status()

	out := statusResponse{
		Volume:         st.Volume,
		Repeat:         st.Options.Repeat,
		Random:         st.Options.Random,
		Single:         st.Options.Single,
		Consume:        st.Options.Consume,
		Playlist:       st.PlaylistVersion,
		PlaylistLength: st.PlaylistLength,
		State:          st.StateName,
		Error:          st.Error,
	}
	if st.Song >= 0 {
		out.Song, out.SongID = &st.Song, &st.SongID
	}
	if st.NextSong >= 0 {
		out.NextSong, out.NextSongID = &st.NextSong, &st.NextSongID
	}
	if st.State != backends.StateStopped {
		out.Time = fmt.Sprintf("%d:%d", int(st.Elapsed.Seconds()), int(st.Duration.Round(time.Second).Seconds()))
		out.Elapsed, out.Duration = &st.Elapsed, &st.Duration
	}
	if job, ok := c.server.library.Updating(); ok {
		out.UpdatingDB = &job
	}

	return NewResponse().Encode(out), nil
}

// cmdStats handles the 'stats' command
func cmdStats(c *conn, _ []string) (*Response, error) {
	stats := c.server.library.Stats()

	out := statsResponse{
		Artists:    stats.Artists,
		Albums:     stats.Albums,
		Songs:      stats.Songs,
		Uptime:     int64(c.server.Uptime().Seconds()),
		Playtime:   int64(c.server.player.Playtime().Seconds()),
		DBPlaytime: int64(stats.Playtime.Seconds()),
	}
	if !stats.LastUpdate.IsZero() {
		out.DBUpdate = stats.LastUpdate.Unix()
	}
	return NewResponse().Encode(out), nil
}

// cmdOutputs handles the 'outputs' command
// There is exactly one output: the playback engine
func cmdOutputs(c *conn, _ []string) (*Response, error) {
	resp := NewResponse()
	resp.Field("outputid", 0)
	resp.Field("outputname", c.server.player.OutputName())
	resp.Field("plugin", c.server.player.OutputName())
	resp.Field("outputenabled", true)
	return resp, nil
}

// cmdCommands handles the 'commands' command
func cmdCommands(_ *conn, _ []string) (*Response, error) {
	resp := NewResponse()
	resp.RepeatedField("command", commandNames())
	return resp, nil
}

// cmdNotCommands handles the 'notcommands' command
// Without permissions every command is available
func cmdNotCommands(_ *conn, _ []string) (*Response, error) {
	return NewResponse(), nil
}

// cmdURLHandlers handles the 'urlhandlers' command
// Only catalog items can be queued, so no URL schemes are accepted
func cmdURLHandlers(_ *conn, _ []string) (*Response, error) {
	return NewResponse(), nil
}

func cmdClearError(c *conn, _ []string) (*Response, error) {
	c.server.player.ClearError()
	return NewResponse(), nil
}

// setOption parses a 0/1 argument and applies it to one playback option
func setOption(c *conn, arg string, apply func(*player.Options, bool)) (*Response, error) {
	value, err := parseBool(arg)
	if err != nil {
		return nil, err
	}
	c.server.player.SetOptions(func(o *player.Options) { apply(o, value) })
	return NewResponse(), nil
}

// cmdRepeat handles the 'repeat' command
func cmdRepeat(c *conn, args []string) (*Response, error) {
	return setOption(c, args[0], func(o *player.Options, v bool) { o.Repeat = v })
}

// cmdRandom handles the 'random' command
func cmdRandom(c *conn, args []string) (*Response, error) {
	return setOption(c, args[0], func(o *player.Options, v bool) { o.Random = v })
}

// cmdSingle handles the 'single' command
// Sets single mode (play one song and stop)
func cmdSingle(c *conn, args []string) (*Response, error) {
	return setOption(c, args[0], func(o *player.Options, v bool) { o.Single = v })
}

// cmdConsume handles the 'consume' command
// Sets consume mode (remove songs from playlist after playing)
func cmdConsume(c *conn, args []string) (*Response, error) {
	return setOption(c, args[0], func(o *player.Options, v bool) { o.Consume = v })
}
