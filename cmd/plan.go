package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogendispatch/app"
	"github.com/kilianp07/cogendispatch/core/scheduler"
	"github.com/kilianp07/cogendispatch/pkg/export"
)

var planOpts struct {
	workers int
	format  string
}

var planCmd = &cobra.Command{
	Use:   "plan <profile.yaml>",
	Short: "Dispatch every hour of a demand profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().IntVarP(&planOpts.workers, "workers", "w", 0, "parallel solves, GOMAXPROCS when 0")
	planCmd.Flags().StringVarP(&planOpts.format, "format", "o", "table", "output format: table, json or csv")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	profile, err := scheduler.LoadProfile(args[0])
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	opt, err := app.NewOptimizer(cfg)
	if err != nil {
		return err
	}
	plan, err := scheduler.Build(cmd.Context(), opt, profile, planOpts.workers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch planOpts.format {
	case export.FormatJSON:
		return export.WriteJSON(out, plan)
	case export.FormatCSV:
		return export.WriteCSV(out, plan.Reports())
	case "table":
	default:
		return fmt.Errorf("unknown format %q", planOpts.format)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOUR\tSTATUS\tPERIOD\tGRID MW\tBOILER T/h\tCOST DH/h\tSAVINGS DH/h")
	for _, e := range plan.Entries {
		if e.Report == nil {
			fmt.Fprintf(tw, "%02d\t%s\t-\t-\t-\t-\t%s\n", e.Hour, e.Status, e.Error)
			continue
		}
		r := e.Report
		fmt.Fprintf(tw, "%02d\t%s\t%s\t%.1f\t%.1f\t%.0f\t%.0f\n", e.Hour, r.Status, r.TariffPeriod, r.GridImportMW, r.BoilerTPH, r.TotalCost, r.Savings)
	}
	fmt.Fprintf(tw, "total\t\t\t\t\t%.0f\t%.0f\n", plan.TotalCost, plan.Savings)
	if err := tw.Flush(); err != nil {
		return err
	}
	if plan.Unsolved > 0 {
		return fmt.Errorf("%d of %d hours could not be dispatched", plan.Unsolved, len(plan.Entries))
	}
	return nil
}
