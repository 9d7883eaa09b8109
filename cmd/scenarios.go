package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogendispatch/app"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/pkg/export"
	"github.com/kilianp07/cogendispatch/qa/scenarios"
)

var scenarioFile string
var scenarioFormat string

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Preset dispatch scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the preset scenarios",
	RunE:  runScenariosList,
}

var scenariosRunCmd = &cobra.Command{
	Use:   "run [name...]",
	Short: "Optimize scenarios and check their expectations",
	RunE:  runScenariosRun,
}

func init() {
	scenariosCmd.PersistentFlags().StringVar(&scenarioFile, "file", "", "scenario YAML file instead of the built-in catalog")
	scenariosRunCmd.Flags().StringVarP(&scenarioFormat, "format", "o", "table", "output format: table, json or csv")
	scenariosCmd.AddCommand(scenariosListCmd, scenariosRunCmd)
	rootCmd.AddCommand(scenariosCmd)
}

func loadScenarios() ([]scenarios.Scenario, error) {
	if scenarioFile != "" {
		return scenarios.Load(scenarioFile)
	}
	return scenarios.Catalog()
}

func runScenariosList(cmd *cobra.Command, _ []string) error {
	list, err := loadScenarios()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tELEC\tSTEAM\tHOUR\tCONSTRAINTS\tDESCRIPTION")
	for _, sc := range list {
		hour := "-"
		if sc.Request.Hour != nil {
			hour = fmt.Sprint(*sc.Request.Hour)
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\t%v\t%s\n", sc.Name, sc.Request.ElecDemand, sc.Request.SteamDemand, hour, sc.Request.Constraints, sc.Description)
	}
	return tw.Flush()
}

func runScenariosRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	list, err := loadScenarios()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		picked := make([]scenarios.Scenario, 0, len(args))
		for _, name := range args {
			sc, ok := scenarios.Find(list, name)
			if !ok {
				return fmt.Errorf("unknown scenario %q", name)
			}
			picked = append(picked, sc)
		}
		list = picked
	}
	opt, err := app.NewOptimizer(cfg)
	if err != nil {
		return err
	}
	results := scenarios.RunAll(cmd.Context(), opt, list)

	switch scenarioFormat {
	case "table":
		err = writeResults(cmd, results)
	default:
		reports := make([]*model.DispatchReport, 0, len(results))
		for _, r := range results {
			reports = append(reports, r.Report)
		}
		if scenarioFormat == export.FormatJSON {
			err = export.WriteJSON(cmd.OutOrStdout(), reports)
		} else {
			err = export.Write(cmd.OutOrStdout(), scenarioFormat, reports...)
		}
	}
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if !r.Passed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func writeResults(cmd *cobra.Command, results []scenarios.Result) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSTATUS\tCOST DH/h\tSAVINGS DH/h\tRESULT")
	for _, r := range results {
		cost, savings := "-", "-"
		if r.Report != nil {
			cost = fmt.Sprintf("%.0f", r.Report.TotalCost)
			savings = fmt.Sprintf("%.0f (%.1f%%)", r.Report.Savings, r.Report.SavingsPercent)
		}
		verdict := "PASS"
		if !r.Passed() {
			verdict = fmt.Sprintf("FAIL %v", r.Failures)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Scenario.Name, r.Status, cost, savings, verdict)
	}
	return tw.Flush()
}
