package reportlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/model"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{
			ID:        "a",
			Timestamp: base,
			Request:   model.DemandRequest{ElecDemandMW: 80, SteamDemandTPH: 350},
			Status:    model.StatusOptimal,
			Report: &model.DispatchReport{
				ID:           "a",
				Status:       model.StatusOptimal,
				TariffPeriod: model.PeriodPeak,
				TotalCost:    1000,
				Savings:      200,
			},
		},
		{
			ID:        "b",
			Timestamp: base.Add(time.Hour),
			Request:   model.DemandRequest{ElecDemandMW: 140, SteamDemandTPH: 590},
			Status:    model.StatusInfeasible,
			Reason:    "electricity demand exceeds achievable supply",
		},
		{
			ID:        "c",
			Timestamp: base.Add(2 * time.Hour),
			Status:    model.StatusOptimal,
			Report:    &model.DispatchReport{ID: "c", TariffPeriod: model.PeriodOffPeak},
		},
	}
}

func TestQueryMatches(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	recs := sampleRecords(base)
	infeasible := model.StatusInfeasible

	assert.True(t, Query{}.Matches(recs[0]))
	assert.False(t, Query{Start: base.Add(time.Minute)}.Matches(recs[0]))
	assert.False(t, Query{End: base.Add(30 * time.Minute)}.Matches(recs[1]))
	assert.True(t, Query{Status: &infeasible}.Matches(recs[1]))
	assert.False(t, Query{Status: &infeasible}.Matches(recs[0]))
	assert.True(t, Query{Period: "peak"}.Matches(recs[0]))
	assert.False(t, Query{Period: "peak"}.Matches(recs[1]))
}

func TestRecordJSON(t *testing.T) {
	rec := sampleRecords(time.Unix(0, 0).UTC())[0]
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"id", "timestamp", "request", "status", "report"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, "Optimal", m["status"])
	assert.NotContains(t, m, "reason")
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "plain.jsonl"))
	require.NoError(t, err)
	rot, err := NewRotatingJSONLStore(filepath.Join(dir, "rot", "log.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "log.db"))
	require.NoError(t, err)
	return map[string]Store{"jsonl": jsonl, "rotating": rot, "sqlite": sqlite}
}

func TestStoresAppendAndQuery(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	infeasible := model.StatusInfeasible
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = store.Close() }()
			ctx := context.Background()
			for _, r := range sampleRecords(base) {
				require.NoError(t, store.Append(ctx, r))
			}

			all, err := store.Query(ctx, Query{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "a", all[0].ID)
			require.NotNil(t, all[0].Report)
			assert.Equal(t, model.PeriodPeak, all[0].Report.TariffPeriod)
			assert.InDelta(t, 200, all[0].Report.Savings, 1e-9)

			got, err := store.Query(ctx, Query{Status: &infeasible})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "b", got[0].ID)
			assert.Equal(t, "electricity demand exceeds achievable supply", got[0].Reason)

			got, err = store.Query(ctx, Query{Start: base.Add(30 * time.Minute)})
			require.NoError(t, err)
			assert.Len(t, got, 2)

			got, err = store.Query(ctx, Query{Period: "off-peak"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "c", got[0].ID)

			got, err = store.Query(ctx, Query{Limit: 1})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "c", got[0].ID)
		})
	}
}

func TestJSONLStoreSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), Record{ID: "x", Timestamp: time.Now()}))
	appendRaw(t, path, "not json\n")
	require.NoError(t, store.Append(context.Background(), Record{ID: "y", Timestamp: time.Now()}))

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestAppendHonoursCancelledContext(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Append(ctx, Record{ID: "x"}), context.Canceled)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{"none", Config{Backend: BackendNone}, NopStore{}},
		{"jsonl", Config{Backend: BackendJSONL, Path: filepath.Join(dir, "a.jsonl")}, &JSONLStore{}},
		{"rotating", Config{Backend: BackendJSONL, Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 5}, &RotatingJSONLStore{}},
		{"sqlite", Config{Backend: BackendSQLite, Path: filepath.Join(dir, "c.db")}, &SQLiteStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			require.NoError(t, err)
			defer func() { _ = s.Close() }()
			assert.IsType(t, tt.want, s)
		})
	}

	_, err := New(Config{Backend: "redis", Path: "x"})
	assert.Error(t, err)
	_, err = New(Config{Backend: BackendJSONL})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, BackendJSONL, c.Backend)
	assert.Equal(t, "decisions.jsonl", c.Path)
	require.NoError(t, c.Validate())

	s := Config{Backend: BackendSQLite}
	s.SetDefaults()
	assert.Equal(t, "decisions.db", s.Path)

	n := Config{Backend: BackendNone}
	n.SetDefaults()
	assert.Empty(t, n.Path)
	require.NoError(t, n.Validate())
}
