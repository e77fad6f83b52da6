// Package otel binds tokenauth metrics to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter. Each latency
// histogram becomes a cumulative "_bucket" gauge with one data point per "le" attribute
// value plus a "_count" gauge. One callback reads [tokenauth.Engine.MetricsSnapshot] on
// each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
