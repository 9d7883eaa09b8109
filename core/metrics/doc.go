// Package metrics defines the sinks that observe optimization runs. Sinks
// such as PromSink and InfluxSink live in infra/metrics and register
// themselves with the factory; NewMetricsSink combines several configured
// sinks into a MultiSink. Optional recorder interfaces let a sink opt into
// rejection and telemetry events.
package metrics
