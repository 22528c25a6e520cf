package runner

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/logsmith/logsmith/internal/metrics"
	"github.com/logsmith/logsmith/internal/sink"
)

// Floor for the effective rate so corrections at or below -100% cannot
// produce a zero or negative rate.
const minEPS = 0.001

// LineSource produces one rendered log line per event.
// Implementations are owned by a single worker and need not be
// safe for concurrent use.
type LineSource interface {
	Next() (string, error)
}

// LineSink persists rendered lines for one pattern. It is acquired when
// the worker enters Running and released on every exit path.
type LineSink interface {
	WriteLine(line string) error
	Close() error
}

// Pattern is one validated, immutable log-generation specification.
type Pattern struct {
	Name       string
	Enabled    bool
	Path       string        // destination appended to by the worker's sink
	EPS        float64       // target events per second, > 0 when enabled
	Correction float64       // signed percent adjustment applied to EPS
	Period     time.Duration // 0 means run until externally cancelled
	Source     LineSource
}

// EffectiveEPS applies the correction percentage multiplicatively,
// clamped to a small positive floor.
func (p Pattern) EffectiveEPS() float64 {
	eff := p.EPS * (1 + p.Correction/100)
	if eff < minEPS {
		eff = minEPS
	}
	return eff
}

type PacingModel string

const (
	PacingModelWindow  PacingModel = "window"
	PacingModelUniform PacingModel = "uniform"
	PacingModelPoisson PacingModel = "poisson"
)

// Options configure the Scheduler.
type Options struct {
	Patterns      []Pattern
	MaxConcurrent int         // workers running simultaneously (0 means one per pattern)
	Pacing        PacingModel // pacing model for all workers (default window)
	Collector     *metrics.Collector

	SinkFactory    func(path string) (LineSink, error) // optional injection for tests
	Window         time.Duration                       // scheduling window length (default 1s)
	RandomSeed     int64
	PoissonSampler func() float64                  // optional injection for tests
	LimiterFactory func(eps float64) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = len(o.Patterns)
		if o.MaxConcurrent == 0 {
			o.MaxConcurrent = 1
		}
	}
	if o.Pacing == "" {
		o.Pacing = PacingModelWindow
	}
	if o.Window <= 0 {
		o.Window = time.Second
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.SinkFactory == nil {
		o.SinkFactory = func(path string) (LineSink, error) {
			return sink.Open(path)
		}
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(eps float64) *rate.Limiter {
			// Burst of one keeps spacing strict; each worker emits serially.
			return rate.NewLimiter(rate.Limit(eps), 1)
		}
	}
}
