// Package prometheus exposes tokenauth metrics through client_golang.
//
// [NewCollector] wraps a [tokenauth.Engine] as a [prometheus.Collector]. Counters are
// named tokenauth_*_total; the single histogram is tokenauth_verify_latency_seconds.
// [Collector.Handler] serves a private registry for callers without one.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry on its own. Callers choose the
//     registry via [Collector.Register].
//   - Mutate engine state.
package prometheus
