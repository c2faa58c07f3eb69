// Package telemetry wraps OpenTelemetry SDK initialization, providing the
// service's TracerProvider and MeterProvider. When telemetry is disabled,
// noop implementations are used and no external service is contacted.
package telemetry
