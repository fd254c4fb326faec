package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Level: "warn", Console: &buf, NoColor: true})
	defer closer.Close()

	logger.Info().Msg("hidden")
	orch := Component(logger, "orch")
	orch.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "comp=orch")
}

func TestNew_TeesJSONIntoFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "operator.log")
	logger, closer := New(Options{Level: "debug", File: path, Console: &buf, NoColor: true})

	dispatch := Component(logger, "dispatch")
	dispatch.Debug().Str("kind", "click").Int("attempt", 2).Msg("attempt failed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "dispatch", rec["comp"])
	assert.Equal(t, "click", rec["kind"])
	assert.Equal(t, float64(2), rec["attempt"])
	assert.Equal(t, "attempt failed", rec["message"])
	assert.Contains(t, buf.String(), "attempt failed")
}
