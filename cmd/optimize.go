package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogendispatch/app"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/infra/logger"
	"github.com/kilianp07/cogendispatch/pkg/export"
)

var optimizeOpts struct {
	elec        float64
	steam       float64
	hour        int
	constraints []string
	verbose     bool
	format      string
	publish     bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compute the cost-minimal dispatch for one demand",
	Example: `  cogendispatch optimize --elec 60 --steam 400 --hour 14
  cogendispatch optimize --elec 60 --steam 400 -C gta2_status=MAINTENANCE -C client_min_steam=420 --format csv`,
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.Float64Var(&optimizeOpts.elec, "elec", 0, "electricity demand in MW")
	f.Float64Var(&optimizeOpts.steam, "steam", 0, "MP steam demand in T/h")
	f.IntVar(&optimizeOpts.hour, "hour", -1, "hour of day 0-23, current hour when negative")
	f.StringArrayVarP(&optimizeOpts.constraints, "constraint", "C", nil, "business constraint as key=value, repeatable")
	f.BoolVarP(&optimizeOpts.verbose, "verbose", "v", false, "log solver diagnostics")
	f.StringVarP(&optimizeOpts.format, "format", "o", export.FormatJSON, "output format: json or csv")
	f.BoolVar(&optimizeOpts.publish, "publish", false, "publish the report on the MQTT report topic")
	_ = optimizeCmd.MarkFlagRequired("elec")
	_ = optimizeCmd.MarkFlagRequired("steam")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	raw, err := parseConstraints(optimizeOpts.constraints)
	if err != nil {
		return err
	}
	req := model.DemandRequest{
		ElecDemandMW:   optimizeOpts.elec,
		SteamDemandTPH: optimizeOpts.steam,
		Constraints:    raw,
		Verbose:        optimizeOpts.verbose,
	}
	if optimizeOpts.hour >= 0 {
		h := optimizeOpts.hour
		req.Hour = &h
	}

	svc, err := app.New(cfg, app.Options{Connect: optimizeOpts.publish})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("cli").Errorf("service close: %v", err)
		}
	}()

	rep, err := svc.Optimizer().Optimize(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := export.Write(cmd.OutOrStdout(), optimizeOpts.format, rep); err != nil {
		return err
	}
	if optimizeOpts.publish {
		return svc.Publish(rep)
	}
	return nil
}

// parseConstraints turns key=value pairs into a raw constraint map. Values
// are kept as strings; the resolver converts them.
func parseConstraints(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("constraint %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
