package telemetry

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CSVReplay cycles through historical plant rows, one row per Snapshot call.
// Every column whose name mentions sulfur (or soufre) is summed into the
// sulfur flow; the first pressure (or pression) column gives the MP pressure.
// Without a pressure column the pressure is estimated from the summed
// extraction columns.
type CSVReplay struct {
	steamPerSulfur float64

	sulfurCols  []int
	pressureCol int
	extractCols []int
	rows        [][]string

	mu   sync.Mutex
	next int
}

// NewCSVReplay loads the whole file.
func NewCSVReplay(path string, steamPerSulfur float64) (*CSVReplay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ReadCSVReplay(f, steamPerSulfur)
}

// ReadCSVReplay loads rows from r. The first record is the header.
func ReadCSVReplay(r io.Reader, steamPerSulfur float64) (*CSVReplay, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read telemetry csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("read telemetry csv: %w", ErrNoTelemetry)
	}
	c := &CSVReplay{steamPerSulfur: steamPerSulfur, pressureCol: -1, rows: records[1:]}
	for i, name := range records[0] {
		n := strings.ToLower(name)
		switch {
		case strings.Contains(n, "sulfur") || strings.Contains(n, "soufre"):
			c.sulfurCols = append(c.sulfurCols, i)
		case strings.Contains(n, "pressure") || strings.Contains(n, "pression"):
			if c.pressureCol < 0 {
				c.pressureCol = i
			}
		case strings.HasPrefix(n, "soutirage_mp_gta") || strings.HasPrefix(n, "extraction_mp_gta"):
			c.extractCols = append(c.extractCols, i)
		}
	}
	if len(c.sulfurCols) == 0 {
		return nil, fmt.Errorf("read telemetry csv: no sulfur column")
	}
	return c, nil
}

// Len returns the number of rows.
func (c *CSVReplay) Len() int { return len(c.rows) }

// Snapshot implements Provider. It wraps around after the last row.
func (c *CSVReplay) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	c.mu.Lock()
	row := c.rows[c.next]
	c.next = (c.next + 1) % len(c.rows)
	c.mu.Unlock()

	var flow float64
	for _, i := range c.sulfurCols {
		flow += cell(row, i)
	}
	snap := Snapshot{
		SulfurFlowTPH:  flow,
		SulfurSteamTPH: flow * c.steamPerSulfur,
		Source:         SourceCSV,
		Time:           time.Now(),
	}
	switch {
	case c.pressureCol >= 0:
		if v, ok := number(row, c.pressureCol); ok {
			snap.MPPressureBar = &v
		}
	case len(c.extractCols) > 0:
		var extraction float64
		for _, i := range c.extractCols {
			extraction += cell(row, i)
		}
		p := EstimatePressure(extraction)
		snap.MPPressureBar = &p
	}
	return snap, nil
}

// EstimatePressure approximates the MP header pressure in bar from the total
// GTA extraction in T/h.
func EstimatePressure(extractionTPH float64) float64 {
	return 8.5 + (extractionTPH-400)*0.001
}

// cell reads a numeric cell. Empty, "Configure" and unparsable cells count
// as zero.
func cell(row []string, i int) float64 {
	v, _ := number(row, i)
	return v
}

func number(row []string, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[i])
	if s == "" || strings.EqualFold(s, "configure") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
