// Package collector aggregates test outcomes reported by a host test engine.
//
// The main components are:
//   - Hooks: the lifecycle contract a host engine drives (begin-run, begin-test,
//     record-success/failure/error/skip, end-test, end-run)
//   - Collector: the Hooks implementation that builds a types.RunReport grouped by suite
//   - ProgressIndicator: console feedback while tests are being recorded
//
// Host engines depend only on Hooks. Calls that break the begin/record/end ordering
// are rejected with a *UsageError and leave the collector unchanged.
package collector
