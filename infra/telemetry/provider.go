package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	coretel "github.com/kilianp07/cogendispatch/core/telemetry"
	infmqtt "github.com/kilianp07/cogendispatch/infra/mqtt"
)

// NewProvider builds the provider selected by cfg.Source. The mqtt source
// needs sub to be non-nil.
func NewProvider(cfg coretel.Config, sub infmqtt.Subscriber, qos byte, reg prometheus.Registerer) (coretel.Provider, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Source {
	case coretel.SourceCSV:
		return coretel.NewCSVReplay(cfg.CSVPath, cfg.SteamPerSulfur)
	case coretel.SourceMQTT:
		if sub == nil {
			return nil, fmt.Errorf("telemetry: mqtt source requires an mqtt connection")
		}
		s, err := NewSubscriber(cfg, reg)
		if err != nil {
			return nil, err
		}
		if err := s.Start(sub, qos); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return coretel.NewStatic(cfg.StaticSulfurFlowTPH, cfg.SteamPerSulfur, cfg.StaticPressureBar), nil
	}
}
