package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"coinwatch/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, logging.ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, logging.ParseLevel("chatty"))
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.New(&buf, "info", "json")
	log.Debug("hidden")
	log.Info("report built", slog.String("symbol", "BTC"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "report built", rec["msg"])
	require.Equal(t, "BTC", rec["symbol"])
}

func TestNew_TextByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logging.New(&buf, "debug", "").Debug("polling", slog.Int("offset", 7))
	require.Contains(t, buf.String(), "msg=polling")
	require.Contains(t, buf.String(), "offset=7")
}
