package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records event counts and sink write latencies in a
// thread-safe manner. Workers update their own Tracker on the hot path;
// the histogram is shared under a mutex.
type Collector struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	writes     int64
	failures   int64
	sumLatency time.Duration
	maxLatency time.Duration
	trackers   map[string]*Tracker
	order      []string
	start      time.Time
}

// Tracker exposes one pattern's live counters; a progress indicator may
// poll it while the worker runs.
type Tracker struct {
	events  int64
	running int32
}

// PatternStats is a point-in-time snapshot of one pattern's progress.
type PatternStats struct {
	Events  int64 `json:"events"`
	Running bool  `json:"running"`
}

// Stats represents aggregated generation metrics.
type Stats struct {
	TotalEvents  int64         `json:"total_events"`
	Failures     int64         `json:"failures"`
	Running      int           `json:"running_workers"`
	Duration     time.Duration `json:"-"`
	EventsPerSec float64       `json:"events_per_sec"`

	MaxWriteLatency  time.Duration `json:"-"`
	MeanWriteLatency time.Duration `json:"-"`
	P50WriteLatency  time.Duration `json:"-"`
	P99WriteLatency  time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	DurationMs         float64 `json:"duration_ms"`
	MaxWriteLatencyMs  float64 `json:"max_write_latency_ms"`
	MeanWriteLatencyMs float64 `json:"mean_write_latency_ms"`
	P50WriteLatencyMs  float64 `json:"p50_write_latency_ms"`
	P99WriteLatencyMs  float64 `json:"p99_write_latency_ms"`

	Patterns map[string]PatternStats `json:"patterns,omitempty"`
}

func NewCollector() *Collector {
	// Track write latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:     h,
		trackers: make(map[string]*Tracker),
		start:    time.Now(),
	}
}

// Start marks the moment generation actually begins, so rate figures use
// elapsed time since the run started rather than collector creation.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// StartedAt returns the recorded start of the run.
func (c *Collector) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

// Tracker returns (creating if needed) the live counter set for a pattern.
func (c *Collector) Tracker(name string) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.trackers[name]
	if !ok {
		tr = &Tracker{}
		c.trackers[name] = tr
		c.order = append(c.order, name)
	}
	return tr
}

// RecordWrite records one sink append's latency and error state.
func (c *Collector) RecordWrite(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if err == nil {
		c.writes++
	} else {
		c.failures++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Failures:        c.failures,
		MaxWriteLatency: c.maxLatency,
		Duration:        elapsed,
	}

	if len(c.trackers) > 0 {
		stats.Patterns = make(map[string]PatternStats, len(c.trackers))
	}
	for _, name := range c.order {
		tr := c.trackers[name]
		events := atomic.LoadInt64(&tr.events)
		running := atomic.LoadInt32(&tr.running) == 1
		stats.TotalEvents += events
		if running {
			stats.Running++
		}
		stats.Patterns[name] = PatternStats{Events: events, Running: running}
	}

	if c.writes > 0 {
		stats.MeanWriteLatency = time.Duration(int64(c.sumLatency) / c.writes)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50WriteLatency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P99WriteLatency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	stats.MaxWriteLatencyMs = float64(stats.MaxWriteLatency) / float64(time.Millisecond)
	stats.MeanWriteLatencyMs = float64(stats.MeanWriteLatency) / float64(time.Millisecond)
	stats.P50WriteLatencyMs = float64(stats.P50WriteLatency) / float64(time.Millisecond)
	stats.P99WriteLatencyMs = float64(stats.P99WriteLatency) / float64(time.Millisecond)

	if elapsed > 0 && stats.TotalEvents > 0 {
		stats.EventsPerSec = float64(stats.TotalEvents) / elapsed.Seconds()
	}

	return stats
}

// Add increments the emitted event count.
func (t *Tracker) Add(n int64) {
	atomic.AddInt64(&t.events, n)
}

// Events returns the events emitted so far.
func (t *Tracker) Events() int64 {
	return atomic.LoadInt64(&t.events)
}

// SetRunning flips the worker's running flag.
func (t *Tracker) SetRunning(running bool) {
	var v int32
	if running {
		v = 1
	}
	atomic.StoreInt32(&t.running, v)
}
