// Package runner is the concurrent rate-controlled generation engine.
//
// A [Scheduler] admits enabled patterns for execution under a global
// concurrency cap and supervises one worker per pattern. Each worker
// couples a pacer, a [LineSource], and a [LineSink] to drive a single
// pattern from admission to termination:
//   - the pacer decides when the next event is due and when the pattern's
//     time period has elapsed
//   - the source renders one line per event
//   - the sink appends the line to the pattern's destination
//
// # Basic Usage
//
//	s := runner.New(runner.Options{
//		Patterns:      patterns,
//		MaxConcurrent: 4,
//	})
//	result := s.Run(ctx)
//
// # Pacing Models
//
//   - [PacingModelWindow] (default): fixed one-second scheduling windows,
//     round(effectiveEps) events per window with fractional carry, evenly
//     spaced with drift correction against the absolute schedule.
//   - [PacingModelUniform]: delegates spacing to a rate.Limiter.
//   - [PacingModelPoisson]: exponential inter-arrival times for bursty,
//     realistic traffic.
//
// # Failure Isolation
//
// A worker's failure (render error, unwritable sink) terminates only that
// worker; its partial event count is preserved in the aggregate result.
// Cancellation is cooperative and always resolves workers to Cancelled,
// never Failed.
package runner
