package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/reportlog"
	"github.com/kilianp07/cogendispatch/infra/kpi"
	"github.com/kilianp07/cogendispatch/jobs/backfill"
	"github.com/kilianp07/cogendispatch/pkg/export"
)

var historyOpts struct {
	since  time.Duration
	status string
	period string
	limit  int
	format string
}

var kpiOpts struct {
	path     string
	days     int
	backfill bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the decision log",
	RunE:  runHistory,
}

var historyKPICmd = &cobra.Command{
	Use:   "kpi",
	Short: "Show daily savings recorded by the kpi metrics sink",
	RunE:  runHistoryKPI,
}

func init() {
	f := historyCmd.Flags()
	f.DurationVar(&historyOpts.since, "since", 0, "only decisions newer than this duration, e.g. 24h")
	f.StringVar(&historyOpts.status, "status", "", "filter by status: Optimal, Infeasible, Unbounded, Error")
	f.StringVar(&historyOpts.period, "period", "", "filter by tariff period: peak, standard, off-peak")
	f.IntVar(&historyOpts.limit, "limit", 50, "keep the most recent N decisions, 0 for all")
	f.StringVarP(&historyOpts.format, "format", "o", "table", "output format: table, json or csv")

	historyKPICmd.Flags().StringVar(&kpiOpts.path, "db", "kpi.db", "kpi SQLite database")
	historyKPICmd.Flags().IntVar(&kpiOpts.days, "days", 30, "number of days to show")
	historyKPICmd.Flags().BoolVar(&kpiOpts.backfill, "backfill", false, "replay the decision log into the database first; use on an empty database")
	historyCmd.AddCommand(historyKPICmd)
	rootCmd.AddCommand(historyCmd)
}

func historyQuery(now time.Time) (reportlog.Query, error) {
	q := reportlog.Query{Limit: historyOpts.limit}
	if historyOpts.since > 0 {
		q.Start = now.Add(-historyOpts.since)
	}
	if historyOpts.status != "" {
		var st model.SolveStatus
		if err := st.UnmarshalText([]byte(historyOpts.status)); err != nil {
			return q, err
		}
		q.Status = &st
	}
	if historyOpts.period != "" {
		p, err := model.ParseTariffPeriod(historyOpts.period)
		if err != nil {
			return q, err
		}
		q.Period = p.String()
	}
	return q, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q, err := historyQuery(time.Now())
	if err != nil {
		return err
	}
	store, err := reportlog.New(cfg.ReportLog)
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch historyOpts.format {
	case export.FormatJSON:
		return export.WriteJSON(out, recs)
	case export.FormatCSV:
		return export.WriteRecordsCSV(out, recs)
	case "table":
	default:
		return fmt.Errorf("unknown format %q", historyOpts.format)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tELEC\tSTEAM\tSTATUS\tPERIOD\tCOST DH/h\tSAVINGS DH/h")
	for _, r := range recs {
		cost, savings := "-", r.Reason
		if r.Report != nil {
			cost = fmt.Sprintf("%.0f", r.Report.TotalCost)
			savings = fmt.Sprintf("%.0f", r.Report.Savings)
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.ID, r.Request.ElecDemandMW, r.Request.SteamDemandTPH,
			r.Status, r.Period(), cost, savings)
	}
	return tw.Flush()
}

func runHistoryKPI(cmd *cobra.Command, _ []string) error {
	store, err := kpi.NewSQLiteStore(kpiOpts.path)
	if err != nil {
		return err
	}
	defer store.Close()
	if kpiOpts.backfill {
		if err := backfillKPI(cmd, store); err != nil {
			return err
		}
	}
	end := time.Now()
	days, err := store.Query(kpi.Day(end).AddDate(0, 0, -kpiOpts.days+1), end)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tRUNS\tOPTIMAL\tCOST DH\tBASELINE DH\tSAVINGS DH")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f\t%.0f\t%.0f\n", d.Date.Format(time.DateOnly), d.Runs, d.Optimal, d.TotalCost, d.BaselineCost, d.Savings)
	}
	return tw.Flush()
}

func backfillKPI(cmd *cobra.Command, store *kpi.SQLiteStore) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	decisions, err := reportlog.New(cfg.ReportLog)
	if err != nil {
		return err
	}
	defer decisions.Close()
	recs, err := decisions.Query(cmd.Context(), reportlog.Query{})
	if err != nil {
		return err
	}
	n, err := backfill.Backfill(store, recs)
	if err != nil {
		return fmt.Errorf("backfill after %d records: %w", n, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "backfilled %d decisions\n", n)
	return nil
}
