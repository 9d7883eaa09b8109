// Package export writes dispatch reports and decision records as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/physics"
	"github.com/kilianp07/cogendispatch/core/reportlog"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Header is the CSV column layout, one row per report.
var Header = func() []string {
	h := []string{"id", "timestamp", "status", "tariff_period", "tariff", "elec_demand", "steam_demand"}
	for id := 1; id <= physics.UnitCount; id++ {
		p := fmt.Sprintf("gta%d_", id)
		h = append(h, p+"status", p+"admission", p+"extraction", p+"power")
	}
	return append(h, "grid_import", "boiler_output", "sulfur_steam", "total_cost", "baseline_cost", "savings", "savings_percent", "recommendations")
}()

// Write encodes reports in the given format.
func Write(w io.Writer, format string, reports ...*model.DispatchReport) error {
	switch format {
	case FormatJSON, "":
		if len(reports) == 1 {
			return WriteJSON(w, reports[0])
		}
		return WriteJSON(w, reports)
	case FormatCSV:
		return WriteCSV(w, reports)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes one row per report.
func WriteCSV(w io.Writer, reports []*model.DispatchReport) error {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		rows = append(rows, reportRow(r))
	}
	return writeRows(w, rows)
}

// WriteRecordsCSV writes decision records. Records without a report keep
// their status and demand with empty dispatch columns.
func WriteRecordsCSV(w io.Writer, recs []reportlog.Record) error {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		if rec.Report != nil {
			rows = append(rows, reportRow(rec.Report))
			continue
		}
		row := make([]string, len(Header))
		row[0] = rec.ID
		row[1] = rec.Timestamp.UTC().Format(time.RFC3339)
		row[2] = rec.Status.String()
		row[5] = num(rec.Request.ElecDemandMW)
		row[6] = num(rec.Request.SteamDemandTPH)
		rows = append(rows, row)
	}
	return writeRows(w, rows)
}

func writeRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func reportRow(r *model.DispatchReport) []string {
	row := []string{
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Status.String(),
		r.TariffPeriod.String(),
		num(r.Tariff),
		num(r.Demands.Electricity),
		num(r.Demands.Steam),
	}
	units := make(map[int]model.UnitDispatch, len(r.Units))
	for _, u := range r.Units {
		units[u.UnitID] = u
	}
	for id := 1; id <= physics.UnitCount; id++ {
		u, ok := units[id]
		if !ok {
			row = append(row, "", "", "", "")
			continue
		}
		row = append(row, u.Status.String(), num(u.AdmissionTPH), num(u.ExtractionTPH), num(u.PowerMW))
	}
	return append(row,
		num(r.GridImportMW),
		num(r.BoilerTPH),
		num(r.SulfurTPH),
		num(r.TotalCost),
		num(r.BaselineCost),
		num(r.Savings),
		num(r.SavingsPercent),
		strconv.Itoa(len(r.Recommendations)),
	)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
