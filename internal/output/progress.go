package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/logsmith/logsmith/internal/metrics"
)

// ProgressReporter displays real-time generation progress on one line.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			// Rates use the collector's run start so the progress line
			// and the final report agree on elapsed time.
			elapsed := time.Since(p.collector.StartedAt())
			stats := p.collector.Stats(elapsed)
			line := fmt.Sprintf("\rEvents: %d | Rate: %.1f eps | Active: %d | Write P99: %.2fms",
				stats.TotalEvents, stats.EventsPerSec, stats.Running, stats.P99WriteLatencyMs)
			if stats.Failures > 0 {
				line += fmt.Sprintf(" | Write Failures: %d", stats.Failures)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
