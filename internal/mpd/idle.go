package mpd

import (
	"context"

	"github.com/famish99/jellympd/internal/events"
)

type idleResult struct {
	changed []events.Subsystem
	err     error
}

// idle waits until a watched subsystem changes or the client sends noidle.
// Any other input while waiting is a protocol violation and closes the
// connection.
func (c *conn) idle(args []string) bool {
	subsystems := make([]events.Subsystem, 0, len(args))
	for _, name := range args {
		s, err := events.ParseSubsystem(name)
		if err != nil {
			return c.writeError(&Error{Code: AckArg, Command: "idle", Message: "Unrecognized idle event: " + name}, 0)
		}
		subsystems = append(subsystems, s)
	}

	ctx, cancel := context.WithCancel(c.server.ctx)
	defer cancel()

	if c.listener.Pending(subsystems) {
		changed, err := c.listener.Listen(ctx, subsystems)
		if err != nil {
			return false
		}
		return c.writeChanged(changed)
	}

	results := make(chan idleResult, 1)
	go func() {
		changed, err := c.listener.Listen(ctx, subsystems)
		results <- idleResult{changed: changed, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return false
		}
		return c.writeChanged(r.changed)

	case line, ok := <-c.lines:
		// the listener must be released before it is used again; events
		// it already collected are reported as the noidle answer
		cancel()
		r := <-results
		if !ok {
			return false
		}

		req, err := ParseRequest(line)
		if err != nil || req.Command != "noidle" {
			c.log.Debug().Str("line", line).Msg("Unexpected input during idle")
			c.writeError(&Error{Code: AckArg, Command: "idle", Message: "only noidle is allowed during idle"}, 0)
			return false
		}
		if r.err != nil {
			r.changed = nil
		}
		return c.writeChanged(r.changed)
	}
}

func (c *conn) writeChanged(changed []events.Subsystem) bool {
	resp := NewResponse()
	for _, s := range changed {
		resp.Field("changed", s.String())
	}
	return c.writeResponse(resp)
}
