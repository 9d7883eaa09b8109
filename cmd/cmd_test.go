package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/reportlog"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseConstraints(t *testing.T) {
	got, err := parseConstraints([]string{"gta2_status=MAINTENANCE", " client_min_steam = 420 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"gta2_status": "MAINTENANCE", "client_min_steam": "420"}, got)

	got, err = parseConstraints(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"gta2_status", "=1", "sulfur_max="} {
		_, err := parseConstraints([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestOptimizeAndHistory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "decisions.jsonl")
	path := writeConfig(t, "reportlog:\n  backend: jsonl\n  path: "+logPath+"\n")

	out, err := execute(t, "optimize", "--config", path, "--elec", "60", "--steam", "400", "--hour", "14",
		"-C", "gta2_status=MAINTENANCE", "-o", "csv")
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader([]byte(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Optimal", rows[1][2])
	assert.Equal(t, "standard", rows[1][3])

	out, err = execute(t, "history", "--config", path, "-o", "json")
	require.NoError(t, err)
	var recs []reportlog.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, rows[1][0], recs[0].ID)

	out, err = execute(t, "history", "--config", path, "-o", "table", "--status", "Infeasible")
	require.NoError(t, err)
	assert.NotContains(t, out, recs[0].ID)

	_, err = execute(t, "history", "--config", path, "-o", "table", "--status", "maybe")
	assert.Error(t, err)

	db := filepath.Join(t.TempDir(), "kpi.db")
	out, err = execute(t, "history", "kpi", "--config", path, "--db", db, "--backfill")
	require.NoError(t, err)
	assert.Contains(t, out, "RUNS")
	assert.Contains(t, out, time.Now().UTC().Format(time.DateOnly))
}

func TestOptimizeInfeasibleFails(t *testing.T) {
	path := writeConfig(t, "reportlog:\n  backend: none\n")
	_, err := execute(t, "optimize", "--config", path, "--elec", "120", "--steam", "400", "--hour", "14", "-o", "json")
	assert.ErrorContains(t, err, "Infeasible")
}

func TestScenariosCommands(t *testing.T) {
	path := writeConfig(t, "reportlog:\n  backend: none\n")

	out, err := execute(t, "scenarios", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "GTA 2 Maintenance")
	assert.Contains(t, out, "Night Operation")

	out, err = execute(t, "scenarios", "run", "--config", path, "-o", "table", "Normal Operation", "Demand Above Capacity")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
	assert.NotContains(t, out, "FAIL")

	_, err = execute(t, "scenarios", "run", "--config", path, "-o", "table", "No Such Scenario")
	assert.Error(t, err)
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	path := writeConfig(t, `mqtt:
  broker: "tcp://localhost:1883"
  username: op
  password: hunter2
sentry:
  dsn: "https://key@sentry.example/1"
reportlog:
  backend: none
`)
	out, err := execute(t, "config", "--config", path, "-o", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "sentry.example")
	assert.Contains(t, out, `"username": "op"`)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	for _, key := range []string{"plant", "tariff", "limits", "solver", "recommend", "telemetry", "mqtt", "metrics", "logging", "sentry", "reportlog"} {
		assert.Contains(t, view, key)
	}

	out, err = execute(t, "config", "--config", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "annexe3-2025")
}

func TestPlanCommand(t *testing.T) {
	path := writeConfig(t, "reportlog:\n  backend: none\n")
	profile := filepath.Join(t.TempDir(), "day.yaml")
	require.NoError(t, os.WriteFile(profile, []byte(`hours:
  - {hour: 3, elec_demand: 40, steam_demand: 300}
  - {hour: 19, elec_demand: 70, steam_demand: 420}
`), 0o644))

	out, err := execute(t, "plan", "--config", path, "-o", "json", profile)
	require.NoError(t, err)
	var plan map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Len(t, plan["entries"], 2)
	assert.EqualValues(t, 0, plan["unsolved"])

	_, err = execute(t, "plan", "--config", path, "-o", "table", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
