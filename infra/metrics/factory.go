package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/cogendispatch/core/factory"
	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/infra/kpi"
)

// InfluxConf is the conf block of an "influx" sink.
type InfluxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Strict disables the fallback to a NopSink when the health check fails.
	Strict bool `json:"strict"`
}

// KPIConf is the conf block of a "kpi" sink.
type KPIConf struct {
	Path string `json:"path"`
}

func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.URL == "" || c.Bucket == "" {
		return nil, errors.New("url and bucket are required")
	}
	if c.Strict {
		return NewInfluxSink(c.URL, c.Token, c.Org, c.Bucket), nil
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func newKPI(conf map[string]any) (coremetrics.MetricsSink, error) {
	c := KPIConf{Path: "kpi.db"}
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return kpi.NewSQLiteStore(c.Path)
}

func init() {
	for name, f := range map[string]factory.Factory[coremetrics.MetricsSink]{
		"nop": func(map[string]any) (coremetrics.MetricsSink, error) { return coremetrics.NopSink{}, nil },
		"prometheus": func(conf map[string]any) (coremetrics.MetricsSink, error) {
			if err := factory.Decode(conf, &struct{}{}); err != nil {
				return nil, err
			}
			return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		},
		"influx": newInflux,
		"kpi":    newKPI,
	} {
		_ = coremetrics.RegisterMetricsSink(name, f)
	}
}
