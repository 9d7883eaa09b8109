// Package kpi aggregates optimization runs into daily savings figures.
package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
)

// Daily is the aggregate of one UTC day.
type Daily struct {
	Date         time.Time
	Runs         int
	Optimal      int
	TotalCost    float64
	BaselineCost float64
	Savings      float64
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// SQLiteStore persists daily KPIs in a SQLite database. It implements
// the metrics sink interface so it can be listed among the sinks.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS daily_kpi (
        day INTEGER PRIMARY KEY,
        runs INTEGER,
        optimal INTEGER,
        total_cost REAL,
        baseline_cost REAL,
        savings REAL
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// RecordOptimization adds the run to its day. Costs count only for optimal runs.
func (s *SQLiteStore) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	optimal := 0
	var cost, base, savings float64
	if ev.Status == model.StatusOptimal {
		optimal = 1
		cost, base, savings = ev.TotalCost, ev.BaselineCost, ev.Savings
	}
	_, err := s.db.Exec(`INSERT INTO daily_kpi (day, runs, optimal, total_cost, baseline_cost, savings)
        VALUES (?, 1, ?, ?, ?, ?)
        ON CONFLICT(day) DO UPDATE SET
            runs = runs + 1,
            optimal = optimal + excluded.optimal,
            total_cost = total_cost + excluded.total_cost,
            baseline_cost = baseline_cost + excluded.baseline_cost,
            savings = savings + excluded.savings`,
		Day(ev.Time).Unix(), optimal, cost, base, savings)
	return err
}

// Query returns the days in the range [start,end].
func (s *SQLiteStore) Query(start, end time.Time) ([]Daily, error) {
	rows, err := s.db.Query(`SELECT day, runs, optimal, total_cost, baseline_cost, savings
        FROM daily_kpi WHERE day >= ? AND day <= ? ORDER BY day`,
		Day(start).Unix(), Day(end).Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Daily
	for rows.Next() {
		var ts int64
		var d Daily
		if err := rows.Scan(&ts, &d.Runs, &d.Optimal, &d.TotalCost, &d.BaselineCost, &d.Savings); err != nil {
			return nil, err
		}
		d.Date = time.Unix(ts, 0).UTC()
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
