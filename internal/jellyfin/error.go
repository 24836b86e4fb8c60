package jellyfin

import (
	"errors"
	"fmt"
)

type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("JellyfinError(%d: %s)", e.StatusCode, e.Message)
}

func (e *Error) Is(err error) bool {
	e2, ok := err.(*Error)
	return ok && e.StatusCode == e2.StatusCode
}

var (
	ErrUnauthorized = &Error{StatusCode: 401, Message: "unauthorized"}
	ErrForbidden    = &Error{StatusCode: 403, Message: "forbidden"}
	ErrNotFound     = &Error{StatusCode: 404, Message: "not found"}

	ErrNoMusicLibrary = errors.New("server has no music library configured")
)
