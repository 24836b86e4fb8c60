package mpd_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/mpd"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		command string
		args    []string
	}{
		{"bare command", "ping", "ping", nil},
		{"plain args", "play 1 2 3", "play", []string{"1", "2", "3"}},
		{"empty quoted arg", `play 1 2 ""`, "play", []string{"1", "2", ""}},
		{"line terminator", "status\r\n", "status", nil},
		{"extra blanks", "seek  1\t 30 ", "seek", []string{"1", "30"}},
		{"quoted with spaces", `find artist "The Beatles"`, "find", []string{"artist", "The Beatles"}},
		{"escape outside quotes", `add foo\ bar`, "add", []string{"foo bar"}},
		{
			"nested escapes",
			`find "(Artist == \"foo\\'bar\\\"\")"`,
			"find",
			[]string{`(Artist == "foo\'bar\"")`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := mpd.ParseRequest(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.command, req.Command)
			assert.Equal(t, tt.args, req.Args)
		})
	}
}

func TestParseRequest_Errors(t *testing.T) {
	_, err := mpd.ParseRequest(`find "artist`)
	assert.ErrorIs(t, err, mpd.ErrUnterminatedQuote)

	_, err = mpd.ParseRequest(`add foo\`)
	assert.ErrorIs(t, err, mpd.ErrTrailingBackslash)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func FuzzParseRequest(f *testing.F) {
	f.Add("artist", "The Beatles")
	f.Add(`(Artist == "foo\'bar\"")`, "")
	f.Add(`\\`, `""`)

	f.Fuzz(func(t *testing.T, a, b string) {
		req, err := mpd.ParseRequest("find " + quote(a) + " " + quote(b))
		require.NoError(t, err)
		assert.Equal(t, "find", req.Command)
		assert.Equal(t, []string{a, b}, req.Args)
	})
}
