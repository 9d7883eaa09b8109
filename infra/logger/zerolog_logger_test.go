package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetOutput(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
		setOutput(os.Stdout, false)
	})
}

func TestZerologLoggerWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newZerolog("dispatch", &buf, false)
	l.Infof("solved in %d ms", 3)
	l.Debugw("lp", map[string]any{"rows": 14, "status": "Optimal"})

	sc := bufio.NewScanner(&buf)
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "dispatch", lines[0]["component"])
	assert.Equal(t, "solved in 3 ms", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, 14.0, lines[1]["rows"])
	assert.Equal(t, "Optimal", lines[1]["status"])
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	newZerolog("telemetry", &buf, true).Warnf("sulfur flow stale")
	assert.Contains(t, buf.String(), "sulfur flow stale")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestConfigureLevel(t *testing.T) {
	resetOutput(t)
	require.NoError(t, Configure(Config{Level: "WARN", Format: "json"}))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	var buf bytes.Buffer
	l := newZerolog("x", &buf, false)
	l.Infof("hidden")
	assert.Empty(t, buf.String())
	l.Warnf("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureFile(t *testing.T) {
	resetOutput(t)
	path := filepath.Join(t.TempDir(), "cogen.log")
	require.NoError(t, Configure(Config{File: path}))
	New("optimizer").Infof("request r-1 optimal")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"component":"optimizer"`)
	assert.Contains(t, string(b), "request r-1 optimal")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Level: "loud"}.Validate())
	assert.Error(t, Config{Format: "xml"}.Validate())
	assert.Error(t, Config{MaxBackups: -1}.Validate())

	c := Config{}
	c.SetDefaults()
	assert.Equal(t, 50, c.MaxSizeMB)
	assert.Equal(t, 5, c.MaxBackups)
}

func TestNopLoggerAlias(t *testing.T) {
	var l Logger = NopLogger{}
	assert.NotPanics(t, func() { l.Infof("x") })
}
