package logging_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/famish99/jellympd/internal/logging"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			logger := logging.New(&bytes.Buffer{}, logging.Config{Level: tt.in})
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Config{Level: "info", JSON: true})

	logger.Info().Str("remote", "127.0.0.1:1234").Msg("client connected")
	logger.Debug().Msg("dropped")

	out := buf.String()
	assert.Contains(t, out, `"remote":"127.0.0.1:1234"`)
	assert.Contains(t, out, `"message":"client connected"`)
	assert.NotContains(t, out, "dropped")
}
