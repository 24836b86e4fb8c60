package player_test

import (
	"os"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/famish99/jellympd/internal/logging"
)

func TestMain(m *testing.M) {
	log.Logger = logging.NewTestLogger()
	os.Exit(m.Run())
}
