package metrics

import "github.com/kilianp07/cogendispatch/core/factory"

// Config lists the metrics sinks and where Prometheus is exposed.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Address of the /metrics HTTP endpoint, empty to disable it.
	Address string `json:"address"`
}
