package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a logger for tests.
// By default, uses WARN level to keep test output quiet.
// Set TEST_DEBUG environment variable to enable debug logging in tests.
func NewTestLogger() zerolog.Logger {
	level := "warn"
	if os.Getenv("TEST_DEBUG") != "" {
		level = "debug"
	}
	return New(os.Stderr, Config{Level: level})
}
