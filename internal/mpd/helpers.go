package mpd

import (
	"strconv"
	"strings"
	"time"
)

// parseInt parses a signed integer argument
func parseInt(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errArg("integer expected: %s", arg)
	}
	return n, nil
}

// parseUint parses an unsigned integer argument such as a position or id
func parseUint(arg string) (int, error) {
	n, err := strconv.ParseUint(arg, 10, 31)
	if err != nil {
		return 0, errArg("unsigned integer expected: %s", arg)
	}
	return int(n), nil
}

// parseBool parses a 0/1 argument
func parseBool(arg string) (bool, error) {
	switch arg {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, errArg("boolean (0/1) expected: %s", arg)
}

// parseSeconds parses a time argument in (fractional) seconds
func parseSeconds(arg string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil || secs < 0 {
		return 0, errArg("time expected: %s", arg)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// parseRange parses "N", "START:END" or "START:". A single position N is
// the range N:N+1; an open end is returned as -1.
func parseRange(arg string) (int, int, error) {
	startArg, endArg, isRange := strings.Cut(arg, ":")

	start, err := parseUint(startArg)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return start, start + 1, nil
	}
	if endArg == "" {
		return start, -1, nil
	}

	end, err := parseUint(endArg)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, errArg("bad range: %s", arg)
	}
	return start, end, nil
}

// requireArgs checks the argument count is within [min, max]; max < 0 means
// unbounded
func requireArgs(args []string, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return errArgCount
	}
	return nil
}
