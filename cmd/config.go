package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cogendispatch/config"
	"github.com/kilianp07/cogendispatch/core/factory"
)

const redacted = "********"

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after defaults, file and environment overrides: coefficients, tariffs, limits and integrations. Secrets are masked.",
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().StringVarP(&configFormat, "format", "o", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	view, err := effective(*cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", configFormat)
	}
}

// effective returns cfg as a generic map keyed like the config file, with
// secrets masked.
func effective(cfg config.Config) (map[string]any, error) {
	if cfg.MQTT.Password != "" {
		cfg.MQTT.Password = redacted
	}
	if cfg.Sentry.DSN != "" {
		cfg.Sentry.DSN = redacted
	}
	cfg.Metrics.Sinks = append([]factory.ModuleConfig(nil), cfg.Metrics.Sinks...)
	for i, s := range cfg.Metrics.Sinks {
		if _, ok := s.Conf["token"]; ok {
			conf := make(map[string]any, len(s.Conf))
			for k, v := range s.Conf {
				conf[k] = v
			}
			conf["token"] = redacted
			cfg.Metrics.Sinks[i].Conf = conf
		}
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var view map[string]any
	if err := json.Unmarshal(b, &view); err != nil {
		return nil, err
	}
	return view, nil
}
