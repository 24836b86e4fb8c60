package mpd

import (
	"strings"
)

// cmdPlay handles the 'play' command
// Without a position, resumes or starts from the current song
func cmdPlay(c *conn, args []string) (*Response, error) {
	if len(args) == 0 {
		return nil, c.server.player.Play(c.server.ctx)
	}

	pos, err := parseUint(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.server.player.PlayPos(c.server.ctx, pos)
}

// cmdPlayID handles the 'playid' command
func cmdPlayID(c *conn, args []string) (*Response, error) {
	if len(args) == 0 {
		return nil, c.server.player.Play(c.server.ctx)
	}

	id, err := parseUint(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.server.player.PlayID(c.server.ctx, id)
}

// cmdPause handles the 'pause' command
// pause 1 pauses, pause 0 resumes, no argument toggles
func cmdPause(c *conn, args []string) (*Response, error) {
	if len(args) == 0 {
		return nil, c.server.player.TogglePause()
	}

	pause, err := parseBool(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.server.player.Pause(pause)
}

func cmdStop(c *conn, _ []string) (*Response, error) {
	return nil, c.server.player.Stop()
}

func cmdNext(c *conn, _ []string) (*Response, error) {
	return nil, c.server.player.Next(c.server.ctx)
}

func cmdPrevious(c *conn, _ []string) (*Response, error) {
	return nil, c.server.player.Previous(c.server.ctx)
}

// cmdSeek handles the 'seek' command: seek POS TIME
func cmdSeek(c *conn, args []string) (*Response, error) {
	pos, err := parseUint(args[0])
	if err != nil {
		return nil, err
	}
	offset, err := parseSeconds(args[1])
	if err != nil {
		return nil, err
	}
	return nil, c.server.player.Seek(c.server.ctx, pos, offset)
}

// cmdSeekID handles the 'seekid' command: seekid ID TIME
func cmdSeekID(c *conn, args []string) (*Response, error) {
	id, err := parseUint(args[0])
	if err != nil {
		return nil, err
	}
	offset, err := parseSeconds(args[1])
	if err != nil {
		return nil, err
	}
	return nil, c.server.player.SeekID(c.server.ctx, id, offset)
}

// cmdSeekCur handles the 'seekcur' command
// A leading + or - makes the time relative to the current position
func cmdSeekCur(c *conn, args []string) (*Response, error) {
	arg := args[0]
	relative := strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-")

	offset, err := parseSeconds(strings.TrimLeft(arg, "+-"))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(arg, "-") {
		offset = -offset
	}
	return nil, c.server.player.SeekCur(offset, relative)
}

// cmdGetVol handles the 'getvol' command
func cmdGetVol(c *conn, _ []string) (*Response, error) {
	return NewResponse().Field("volume", c.server.player.Volume()), nil
}

// cmdSetVol handles the 'setvol' command
func cmdSetVol(c *conn, args []string) (*Response, error) {
	volume, err := parseInt(args[0])
	if err != nil {
		return nil, err
	}
	if volume < 0 || volume > 100 {
		return nil, errArg("Invalid volume value")
	}
	return nil, c.server.player.SetVolume(volume)
}

// cmdVolume handles the deprecated 'volume' command, a relative setvol
func cmdVolume(c *conn, args []string) (*Response, error) {
	delta, err := parseInt(args[0])
	if err != nil {
		return nil, err
	}
	_, err = c.server.player.ChangeVolume(delta)
	return nil, err
}
