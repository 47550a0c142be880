package log_test

import (
	"bytes"
	"testing"

	applog "github.com/jrsteele09/appo-client/internal/log"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var dev bytes.Buffer
	logger := applog.New("DEV", &dev)
	logger.Debug().Msg("refresh joined")
	require.Contains(t, dev.String(), "refresh joined")
	require.Contains(t, dev.String(), "env=")

	var prod bytes.Buffer
	logger = applog.New("PROD", &prod)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	require.NotContains(t, prod.String(), "hidden")
	require.Contains(t, prod.String(), "shown")
}
