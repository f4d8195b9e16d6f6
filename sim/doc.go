// Package sim provides the core discrete-event simulation engine for a single
// automated yard crane serving a container storage yard.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - container.go: Container record, operation codes and location lifecycle
//   - event.go: Event types that drive the simulation (vessel calls, job arrivals, crane moves)
//   - simulator.go: The event loop, the crane state machine and batch allocation
//
// # Architecture
//
// The sim package owns the simulation state; supporting concerns live in
// sub-packages:
//   - sim/workload/: Inter-arrival and per-call count samplers
//   - sim/trace/: Decision trace recording (allocation, sequencing)
//   - sim/observability/: Prometheus collector implementing MetricsRecorder
//   - sim/experiment/: Warm start, batch means and independent replications
//   - sim/export/: Result sinks (zstd JSONL, SQLite results index)
//
// # Key Interfaces
//
// The extension points are single-method or small interfaces:
//   - QueueSequencer: order the pending queue after every arrival batch
//   - RouteOptimizer: reorder a bounded window of crane jobs (best effort)
//   - AllocationStrategy: pick an empty slot inside a vessel's sub-block
//   - MetricsRecorder: receive KPI observations as the crane moves
//
// Time is measured in ticks of one microsecond. Rates are configured per hour
// and travel durations are computed in seconds.
package sim
