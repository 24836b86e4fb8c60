package mpd

import (
	"errors"
	"fmt"

	"github.com/famish99/jellympd/internal/catalog"
	"github.com/famish99/jellympd/internal/playlist"
)

// AckCode is the numeric error class sent in an ACK line
type AckCode int

const (
	AckNotList       AckCode = 1
	AckArg           AckCode = 2
	AckPassword      AckCode = 3
	AckPermission    AckCode = 4
	AckUnknown       AckCode = 5
	AckNoExist       AckCode = 50
	AckPlaylistMax   AckCode = 51
	AckSystem        AckCode = 52
	AckPlaylistLoad  AckCode = 53
	AckUpdateAlready AckCode = 54
	AckPlayerSync    AckCode = 55
	AckExist         AckCode = 56
)

// Error is a protocol-level failure reported to the client as an ACK line
type Error struct {
	Code    AckCode
	Command string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Ack formats the error for the wire. index is the position of the failing
// command inside a command list, or 0 outside one.
func (e *Error) Ack(index int) string {
	return fmt.Sprintf("ACK [%d@%d] {%s} %s\n", e.Code, index, e.Command, e.Message)
}

// UnknownCommand reports a command name that is not in the command table
func UnknownCommand(name string) *Error {
	return &Error{Code: AckUnknown, Message: fmt.Sprintf("unknown command %q", name)}
}

func errArg(format string, args ...any) *Error {
	return &Error{Code: AckArg, Message: fmt.Sprintf(format, args...)}
}

func errNoExist(format string, args ...any) *Error {
	return &Error{Code: AckNoExist, Message: fmt.Sprintf(format, args...)}
}

func errSystem(err error) *Error {
	return &Error{Code: AckSystem, Message: err.Error(), Err: err}
}

var (
	errArgCount  = errArg("wrong number of arguments")
	errNotInList = &Error{Code: AckNotList, Message: "not in command list"}
	errNested    = &Error{Code: AckNotList, Message: "command lists cannot be nested"}
)

// toError converts any handler error into a protocol error attributed to
// command. The original error stays reachable through Unwrap.
func toError(command string, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		out := *perr
		if out.Command == "" {
			out.Command = command
		}
		return &out
	}

	code := AckSystem
	switch {
	case errors.Is(err, playlist.ErrBadPosition):
		code = AckArg
	case errors.Is(err, playlist.ErrNoSuchSong),
		errors.Is(err, playlist.ErrNoCurrent):
		code = AckNoExist
	case errors.Is(err, catalog.ErrUpdateRunning):
		code = AckUpdateAlready
	}
	return &Error{Code: code, Command: command, Message: err.Error(), Err: err}
}
