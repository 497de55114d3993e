// Package otel publishes store counters through OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads every
// source's snapshot on each collection; series carry a "namespace" attribute.
//
// The caller owns the MeterProvider.
package otel
