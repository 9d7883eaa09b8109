// Package infra holds the adapters behind the core interfaces: MQTT
// transport, telemetry sources, metrics and KPI sinks, logging and Sentry.
package infra
