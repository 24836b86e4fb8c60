package mpd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/famish99/jellympd/internal/catalog"
)

var ErrForbiddenValue = errors.New("forbidden character")

// Char is a single character field value
type Char rune

// Response accumulates the "Key: Value" lines of a command result. The first
// invalid value is remembered and every later call becomes a no-op, so
// handlers can build a response freely and check Err once.
type Response struct {
	buf bytes.Buffer
	err error
}

// NewResponse creates an empty response
func NewResponse() *Response {
	return &Response{}
}

// Field appends one "key: value" line
func (r *Response) Field(key string, value any) *Response {
	return r.field("", key, value)
}

// IndexedField appends one "index:key: value" line, the form of the
// deprecated playlist listing
func (r *Response) IndexedField(index int, key string, value any) *Response {
	return r.field(strconv.Itoa(index)+":", key, value)
}

func (r *Response) field(prefix, key string, value any) *Response {
	if r.err != nil {
		return r
	}

	s, err := formatValue(value)
	if err == nil {
		err = checkKey(key)
	}
	if err != nil {
		r.err = fmt.Errorf("field %q: %w", key, err)
		return r
	}

	r.buf.WriteString(prefix)
	r.buf.WriteString(key)
	r.buf.WriteString(": ")
	r.buf.WriteString(s)
	r.buf.WriteByte('\n')
	return r
}

// RepeatedField appends one line per value, all under the same key
func (r *Response) RepeatedField(key string, values []string) *Response {
	for _, v := range values {
		r.Field(key, v)
	}
	return r
}

// Item appends the song block for a catalog item, limited to the enabled tags
func (r *Response) Item(it *catalog.Item, tags TagSet) *Response {
	r.Field("file", it.ID)
	for _, tag := range catalog.AllTags() {
		if !tags.Has(tag) {
			continue
		}
		if values, ok := it.TagValues(tag); ok {
			r.RepeatedField(tag.String(), values)
		}
	}
	if it.Duration > 0 {
		r.Field("Time", int(it.Duration.Round(time.Second)/time.Second))
		r.Field("duration", it.Duration)
	}
	return r
}

// Extend appends the lines of another response
func (r *Response) Extend(other *Response) *Response {
	if r.err != nil {
		return r
	}
	if other.err != nil {
		r.err = other.err
		return r
	}
	r.buf.Write(other.buf.Bytes())
	return r
}

// ListOK appends the marker written after each command in
// command_list_ok_begin mode
func (r *Response) ListOK() *Response {
	if r.err == nil {
		r.buf.WriteString("list_OK\n")
	}
	return r
}

// Err returns the first serialization error
func (r *Response) Err() error {
	return r.err
}

// Bytes returns the accumulated lines without the OK terminator
func (r *Response) Bytes() []byte {
	return r.buf.Bytes()
}

// WriteTo writes the response followed by the OK terminator
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.buf.WriteString("OK\n")
	n, err := w.Write(r.buf.Bytes())
	r.buf.Truncate(r.buf.Len() - len("OK\n"))
	return int64(n), err
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, ":\n ") {
		return fmt.Errorf("%w: invalid key", ErrForbiddenValue)
	}
	return nil
}

func formatValue(value any) (string, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case Char:
		if v == ':' {
			return "", fmt.Errorf(`%w: character ":" is not allowed`, ErrForbiddenValue)
		}
		s = string(rune(v))
	case bool:
		s = "0"
		if v {
			s = "1"
		}
	case int:
		s = strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprint(v)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', 3, 32)
	case float64:
		s = strconv.FormatFloat(v, 'f', 3, 64)
	case time.Duration:
		s = strconv.FormatFloat(v.Seconds(), 'f', 3, 64)
	case time.Time:
		s = v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}

	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("%w: newline in value", ErrForbiddenValue)
	}
	for _, word := range strings.Fields(s) {
		if word == "OK" || word == "ACK" {
			return "", fmt.Errorf("%w: OK/ACK are not allowed in responses", ErrForbiddenValue)
		}
	}
	return s, nil
}
