package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogendispatch/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "cogendispatch",
	Short:         "Cogeneration energy dispatch optimizer",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json); defaults and COGEN_ environment when empty")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
