package mpd

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/famish99/jellympd/internal/events"
)

const writeTimeout = 30 * time.Second

// conn is the state of one client connection. Everything except lines and
// readErr is owned by the serving goroutine.
type conn struct {
	server   *Server
	nc       net.Conn
	tags     TagSet
	listener *events.Listener
	log      zerolog.Logger

	// lines is fed by readLoop so that idle can race input against events
	lines    chan string
	readErr  error
	done     chan struct{}
	readDone chan struct{}
}

func newConn(s *Server, nc net.Conn) *conn {
	return &conn{
		server:   s,
		nc:       nc,
		tags:     AllTagSet(),
		listener: s.notifier.Listener(),
		log:      s.log.With().Str("remote", nc.RemoteAddr().String()).Logger(),
		lines:    make(chan string),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

// serve runs the connection until the client leaves, sends close, breaks
// the protocol or a write fails
func (c *conn) serve() {
	c.log.Info().Msg("MPD client connected")
	defer c.log.Info().Msg("MPD client disconnected")

	go c.readLoop()
	defer func() {
		_ = c.nc.Close()
		close(c.done)
		<-c.readDone
	}()

	if !c.writeString(fmt.Sprintf("OK MPD %s\n", ProtocolVersion)) {
		return
	}

	for {
		line, ok := c.readLine()
		if !ok {
			return
		}
		if !c.handleLine(line) {
			return
		}
	}
}

func (c *conn) readLoop() {
	defer close(c.readDone)
	defer close(c.lines)

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, min(4096, c.server.opts.MaxLineLength)), c.server.opts.MaxLineLength)
	for scanner.Scan() {
		select {
		case c.lines <- scanner.Text():
		case <-c.done:
			return
		}
	}
	c.readErr = scanner.Err()
}

// readLine waits for the next input line, applying the inactivity timeout
func (c *conn) readLine() (string, bool) {
	var timeout <-chan time.Time
	if d := c.server.opts.IdleTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case line, ok := <-c.lines:
		if !ok {
			switch {
			case errors.Is(c.readErr, bufio.ErrTooLong):
				c.log.Warn().Int("limit", c.server.opts.MaxLineLength).Msg("Request line too long, closing connection")
			case c.readErr != nil && !errors.Is(c.readErr, net.ErrClosed):
				c.log.Debug().Err(c.readErr).Msg("Read failed")
			}
			return "", false
		}
		return line, true
	case <-timeout:
		c.log.Info().Msg("Closing inactive connection")
		return "", false
	case <-c.server.ctx.Done():
		return "", false
	}
}

// handleLine processes one line outside a command list. It returns false
// when the connection should be closed.
func (c *conn) handleLine(line string) bool {
	if line == "" {
		return true
	}

	switch line {
	case "command_list_begin":
		return c.commandList(false)
	case "command_list_ok_begin":
		return c.commandList(true)
	case "command_list_end":
		perr := *errNotInList
		perr.Command = line
		return c.writeError(&perr, 0)
	}

	req, err := ParseRequest(line)
	if err != nil {
		return c.writeError(errArg("%s", err), 0)
	}

	switch req.Command {
	case "idle":
		return c.idle(req.Args)
	case "noidle":
		return true
	case "close":
		return false
	}

	resp, perr := c.execute(req)
	if perr != nil {
		return c.writeError(perr, 0)
	}
	return c.writeResponse(resp)
}

// commandList collects lines up to command_list_end and runs them in
// order. The first failure is reported with its index and the remaining
// commands are skipped. A list larger than MaxCommandListSize is rejected
// and closes the connection.
func (c *conn) commandList(okMode bool) bool {
	var (
		lines []string
		size  int
	)
	for {
		line, ok := c.readLine()
		if !ok {
			return false
		}
		if line == "command_list_end" {
			break
		}
		if line == "command_list_begin" || line == "command_list_ok_begin" {
			perr := *errNested
			perr.Command = line
			return c.writeError(&perr, len(lines))
		}
		if size += len(line) + 1; size > c.server.opts.MaxCommandListSize {
			c.log.Warn().Int("limit", c.server.opts.MaxCommandListSize).Msg("Command list too large, closing connection")
			begin := "command_list_begin"
			if okMode {
				begin = "command_list_ok_begin"
			}
			c.writeError(&Error{Code: AckArg, Command: begin, Message: "command list is too large"}, len(lines))
			return false
		}
		lines = append(lines, line)
	}

	out := NewResponse()
	for i, line := range lines {
		var (
			resp *Response
			perr *Error
		)
		if req, err := ParseRequest(line); err != nil {
			perr = errArg("%s", err)
		} else {
			resp, perr = c.execute(req)
		}

		if perr != nil {
			c.log.Debug().Str("error", perr.Error()).Int("index", i).Msg("Command list failed")
			return c.write(append(out.Bytes(), perr.Ack(i)...))
		}

		out.Extend(resp)
		if okMode {
			out.ListOK()
		}
	}
	return c.writeResponse(out)
}

// execute runs one command through the command table
func (c *conn) execute(req Request) (out *Response, perr *Error) {
	cmd, ok := commands[req.Command]
	if !ok {
		return nil, UnknownCommand(req.Command)
	}
	if err := requireArgs(req.Args, cmd.minArgs, cmd.maxArgs); err != nil {
		return nil, toError(req.Command, err)
	}

	c.log.Debug().Str("command", req.Command).Strs("args", req.Args).Msg("MPD command")

	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("command", req.Command).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Command handler panicked")
			out, perr = nil, &Error{Code: AckSystem, Command: req.Command, Message: "internal error"}
		}
	}()

	resp, err := cmd.handler(c, req.Args)
	if err != nil {
		return nil, toError(req.Command, err)
	}
	if resp == nil {
		resp = NewResponse()
	}
	if err := resp.Err(); err != nil {
		return nil, toError(req.Command, errSystem(err))
	}
	return resp, nil
}

func (c *conn) writeResponse(resp *Response) bool {
	if err := resp.Err(); err != nil {
		return c.writeError(errSystem(err), 0)
	}
	if err := c.nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return false
	}
	if _, err := resp.WriteTo(c.nc); err != nil {
		c.log.Debug().Err(err).Msg("Write failed")
		return false
	}
	return true
}

func (c *conn) writeError(perr *Error, index int) bool {
	c.log.Debug().Str("error", perr.Error()).Msg("Command failed")
	return c.writeString(perr.Ack(index))
}

func (c *conn) writeString(s string) bool {
	return c.write([]byte(s))
}

func (c *conn) write(b []byte) bool {
	if err := c.nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return false
	}
	if _, err := c.nc.Write(b); err != nil {
		c.log.Debug().Err(err).Msg("Write failed")
		return false
	}
	return true
}
