package runner

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// pacer decides when a worker may emit its next event.
type pacer interface {
	// next blocks until the next emission slot. It returns false once the
	// pattern's time period has elapsed, and the context error when
	// cancellation is observed.
	next(ctx context.Context) (bool, error)
}

func newPacer(opt Options, p Pattern) pacer {
	eff := p.EffectiveEPS()
	switch opt.Pacing {
	case PacingModelUniform:
		return &uniformPacer{limiter: opt.LimiterFactory(eff), period: p.Period}
	case PacingModelPoisson:
		sample := opt.PoissonSampler
		if sample == nil {
			seeded := rand.New(rand.NewSource(opt.RandomSeed))
			sample = seeded.ExpFloat64
		}
		return &poissonPacer{rate: eff, sample: sample, period: p.Period}
	default:
		return &windowPacer{eps: eff, window: opt.Window, period: p.Period}
	}
}

// windowPacer paces emissions in fixed-length scheduling windows. Each
// window emits round(eps * windowSeconds) events, with the fractional
// remainder carried into the next window so the long-run average
// converges on the target instead of truncating every window. Events are
// spaced evenly inside the window against the absolute schedule, so
// systematic scheduling latency never accumulates into drift.
type windowPacer struct {
	eps    float64
	window time.Duration
	period time.Duration

	start time.Time
	index int64   // windows opened so far
	carry float64 // fractional events owed to the next window

	base  time.Duration // current window's scheduled offset from start
	gap   time.Duration
	slot  int
	slots int
}

func (w *windowPacer) next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if w.start.IsZero() {
		w.start = time.Now()
	}

	for w.slot >= w.slots {
		// New windows are only admitted inside the time period; events
		// already committed to the current window run to completion.
		if w.period > 0 && time.Since(w.start) >= w.period {
			return false, nil
		}

		w.base = time.Duration(w.index) * w.window
		w.index++

		exact := w.eps*w.window.Seconds() + w.carry
		count := int(exact + 0.5)
		w.carry = exact - float64(count)

		if count <= 0 {
			// Idle window: advance the clock, no busy loop.
			if err := w.sleepUntil(ctx, w.base+w.window); err != nil {
				return false, err
			}
			continue
		}
		w.slots = count
		w.slot = 0
		w.gap = w.window / time.Duration(count)
	}

	target := w.base + w.gap*time.Duration(w.slot)
	w.slot++
	if err := w.sleepUntil(ctx, target); err != nil {
		return false, err
	}
	return true, nil
}

// sleepUntil sleeps toward an offset on the absolute schedule. A target
// already in the past returns immediately, which degrades very high
// rates to back-to-back emission.
func (w *windowPacer) sleepUntil(ctx context.Context, offset time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delay := time.Until(w.start.Add(offset))
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// uniformPacer delegates spacing to a rate.Limiter.
type uniformPacer struct {
	limiter *rate.Limiter
	period  time.Duration
	start   time.Time
}

func (u *uniformPacer) next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if u.start.IsZero() {
		u.start = time.Now()
	}
	if u.period > 0 && time.Since(u.start) >= u.period {
		return false, nil
	}
	if err := u.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}
	return true, nil
}

// poissonPacer samples exponential inter-arrival times to approximate a
// Poisson event process.
type poissonPacer struct {
	rate   float64
	sample func() float64
	period time.Duration
	start  time.Time
}

func (p *poissonPacer) next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.start.IsZero() {
		p.start = time.Now()
	}
	if p.period > 0 && time.Since(p.start) >= p.period {
		return false, nil
	}

	delay := float64(time.Second) * p.sample() / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	if delay <= 0 {
		return true, nil
	}
	timer := time.NewTimer(time.Duration(delay))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
