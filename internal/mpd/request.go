package mpd

import (
	"errors"
	"strings"
)

var (
	ErrUnterminatedQuote = errors.New("unterminated quoted string")
	ErrTrailingBackslash = errors.New("trailing backslash")
)

// Request is a single parsed command line
type Request struct {
	Command string
	Args    []string
}

// ParseRequest splits a command line into the command name and its
// arguments. Arguments are separated by unescaped whitespace; a backslash
// escapes any character and double quotes group text into one argument.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")

	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return Request{Command: line}, nil
	}

	args, err := tokenize(line[idx+1:])
	if err != nil {
		return Request{}, err
	}
	return Request{Command: line[:idx], Args: args}, nil
}

func tokenize(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inToken bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t':
			if inToken {
				args = append(args, current.String())
				current.Reset()
				inToken = false
			}
		case '\\':
			if i+1 >= len(s) {
				return nil, ErrTrailingBackslash
			}
			i++
			current.WriteByte(s[i])
			inToken = true
		case '"':
			inToken = true
			closed := false
			for i++; i < len(s); i++ {
				if s[i] == '\\' {
					if i+1 >= len(s) {
						return nil, ErrUnterminatedQuote
					}
					i++
					current.WriteByte(s[i])
					continue
				}
				if s[i] == '"' {
					closed = true
					break
				}
				current.WriteByte(s[i])
			}
			if !closed {
				return nil, ErrUnterminatedQuote
			}
		default:
			current.WriteByte(c)
			inToken = true
		}
	}

	if inToken {
		args = append(args, current.String())
	}
	return args, nil
}
