// Package auditsink provides tokenauth.AuditSink implementations backed by external
// systems: [ZapSink] for structured logs and [KafkaSink] for a Kafka topic.
//
// Both sinks are driven from the engine's audit dispatcher goroutine and never block
// login, refresh, or verify. Publish failures are logged, not propagated.
package auditsink
