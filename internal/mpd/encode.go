package mpd

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// Encode appends the fields of a struct. Fields are named by their
// `mpd:"Key,omitempty"` tag, or by the Go field name when untagged. Slices
// become repeated lines, nil pointers are skipped and embedded or nested
// structs are flattened in declaration order.
func (r *Response) Encode(v any) *Response {
	if r.err != nil {
		return r
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return r
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		r.err = fmt.Errorf("cannot encode %s", rv.Type())
		return r
	}

	r.encodeStruct(rv)
	return r
}

func (r *Response) encodeStruct(rv reflect.Value) {
	st := rv.Type()
	for i := 0; i < st.NumField() && r.err == nil; i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}

		name, ok := field.Tag.Lookup("mpd")
		var omitEmpty bool
		if ok {
			parts := strings.Split(name, ",")
			name = parts[0]
			for _, part := range parts[1:] {
				if part == "omitempty" {
					omitEmpty = true
				}
			}
		} else {
			name = field.Name
		}
		if name == "-" {
			continue
		}

		// a set pointer is always written, even when it points at a zero value
		fv := rv.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
			omitEmpty = false
		}

		if isNested(fv) {
			r.encodeStruct(fv)
			continue
		}

		if name == "" {
			r.err = errors.New("invalid 'mpd' tag")
			return
		}
		if omitEmpty && fv.IsZero() {
			continue
		}

		if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() != reflect.Uint8 {
			for j := 0; j < fv.Len(); j++ {
				r.Field(name, fv.Index(j).Interface())
			}
			continue
		}
		r.Field(name, fv.Interface())
	}
}

func isNested(fv reflect.Value) bool {
	return fv.Kind() == reflect.Struct &&
		fv.Type() != timeType &&
		!fv.Type().Implements(stringerType)
}
