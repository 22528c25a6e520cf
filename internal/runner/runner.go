package runner

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TerminationReason classifies how a worker reached its terminal state.
type TerminationReason string

const (
	ReasonTimeExpired TerminationReason = "time_expired"
	ReasonCancelled   TerminationReason = "cancelled"
	ReasonError       TerminationReason = "error"
)

// PatternResult is one pattern's outcome.
type PatternResult struct {
	Name   string            `json:"name"`
	Events int64             `json:"events"`
	Reason TerminationReason `json:"reason"`
	Err    error             `json:"-"`
}

// Result aggregates every admitted pattern's outcome.
type Result struct {
	Patterns []PatternResult `json:"patterns"`
	Duration time.Duration   `json:"-"`
}

// Failed returns the number of patterns that terminated with an error.
func (r Result) Failed() int {
	var n int
	for _, p := range r.Patterns {
		if p.Reason == ReasonError {
			n++
		}
	}
	return n
}

// Scheduler admits enabled patterns for execution under a global
// concurrency limit and supervises worker lifecycles.
type Scheduler struct {
	opt Options
}

func New(opt Options) *Scheduler {
	opt.normalize()
	return &Scheduler{opt: opt}
}

// Run executes all enabled patterns and blocks until every worker has
// reached a terminal state. Cancelling ctx propagates to running and
// queued workers; Run still waits for them before returning.
func (s *Scheduler) Run(ctx context.Context) Result {
	start := time.Now()

	enabled := make([]Pattern, 0, len(s.opt.Patterns))
	for _, p := range s.opt.Patterns {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return Result{}
	}

	results := make([]PatternResult, len(enabled))
	// Counting semaphore; a slot frees only when a worker terminates.
	slots := make(chan struct{}, s.opt.MaxConcurrent)
	var wg sync.WaitGroup

	// Admission in arrival order: patterns beyond the cap block here
	// until a running worker finishes.
	for i := range enabled {
		p := enabled[i]
		if ctx.Err() != nil {
			results[i] = PatternResult{Name: p.Name, Reason: ReasonCancelled}
			continue
		}
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			results[i] = PatternResult{Name: p.Name, Reason: ReasonCancelled}
			continue
		}
		wg.Add(1)
		go func(idx int, p Pattern) {
			defer wg.Done()
			defer func() { <-slots }()
			results[idx] = runWorker(ctx, s.opt, p)
			log.WithField("pattern", p.Name).
				Debugf("worker finished: %d events (%s)", results[idx].Events, results[idx].Reason)
		}(i, p)
	}
	wg.Wait()

	return Result{Patterns: results, Duration: time.Since(start)}
}
