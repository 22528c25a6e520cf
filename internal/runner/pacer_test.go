package runner

import (
	"context"
	"testing"
	"time"
)

func drain(t *testing.T, p pacer, ctx context.Context) int {
	t.Helper()
	var events int
	for {
		ok, err := p.next(ctx)
		if err != nil {
			t.Fatalf("pacer failed after %d events: %v", events, err)
		}
		if !ok {
			return events
		}
		events++
	}
}

func TestWindowPacerConvergesOnTarget(t *testing.T) {
	// 100 events/s in 50ms windows over 500ms: 5 events per window,
	// 10 scheduled windows plus at most one boundary window.
	p := &windowPacer{eps: 100, window: 50 * time.Millisecond, period: 500 * time.Millisecond}
	start := time.Now()
	events := drain(t, p, context.Background())
	elapsed := time.Since(start)

	if events < 45 || events > 61 {
		t.Fatalf("emitted %d events, want ~50", events)
	}
	if elapsed > 700*time.Millisecond {
		t.Fatalf("pacing drifted: run took %s for a 500ms period", elapsed)
	}
}

func TestWindowPacerCarriesFractionalRemainder(t *testing.T) {
	// 5 events/s in 100ms windows is half an event per window; truncation
	// would emit nothing, rounding with carry alternates 1,0,1,0...
	p := &windowPacer{eps: 5, window: 100 * time.Millisecond, period: time.Second}
	events := drain(t, p, context.Background())
	if events < 4 || events > 7 {
		t.Fatalf("emitted %d events, want ~5", events)
	}
}

func TestWindowPacerIdleWindowsAdvanceClock(t *testing.T) {
	p := &windowPacer{eps: minEPS, window: 30 * time.Millisecond, period: 120 * time.Millisecond}
	start := time.Now()
	events := drain(t, p, context.Background())
	elapsed := time.Since(start)

	if events != 0 {
		t.Fatalf("near-zero rate emitted %d events", events)
	}
	if elapsed < 120*time.Millisecond {
		t.Fatalf("pacer returned after %s, before the period elapsed", elapsed)
	}
	if elapsed > 400*time.Millisecond {
		t.Fatalf("idle windows took %s, clock not advancing cleanly", elapsed)
	}
}

func TestWindowPacerHighRateDegradesGracefully(t *testing.T) {
	// More events than the clock can space evenly: no sleep, no failure.
	p := &windowPacer{eps: 5_000_000, window: 20 * time.Millisecond, period: 40 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)
	var events int
	for time.Now().Before(deadline) {
		ok, err := p.next(context.Background())
		if err != nil {
			t.Fatalf("pacer failed: %v", err)
		}
		if !ok {
			break
		}
		events++
	}
	if events == 0 {
		t.Fatal("high-rate pacer emitted nothing")
	}
}

func TestWindowPacerObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &windowPacer{eps: 50, window: 50 * time.Millisecond} // unbounded period

	go func() {
		time.Sleep(80 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	for {
		ok, err := p.next(ctx)
		if err != nil {
			if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
				t.Fatalf("cancellation observed only after %s", elapsed)
			}
			return
		}
		if !ok {
			t.Fatal("unbounded pacer reported time expiry")
		}
	}
}

func TestUniformPacerHonorsPeriod(t *testing.T) {
	var opt Options
	opt.normalize()
	p := &uniformPacer{limiter: opt.LimiterFactory(100), period: 250 * time.Millisecond}
	events := drain(t, p, context.Background())
	if events < 18 || events > 32 {
		t.Fatalf("emitted %d events, want ~25", events)
	}
}

func TestPoissonPacerWithInjectedSampler(t *testing.T) {
	// Constant sampler makes inter-arrival deterministic: 10ms at 100/s.
	p := &poissonPacer{rate: 100, sample: func() float64 { return 1 }, period: 100 * time.Millisecond}
	events := drain(t, p, context.Background())
	if events < 7 || events > 13 {
		t.Fatalf("emitted %d events, want ~10", events)
	}
}

func TestEffectiveEPS(t *testing.T) {
	cases := []struct {
		eps        float64
		correction float64
		want       float64
	}{
		{5, 0, 5},
		{5, 100, 10},
		{5, -50, 2.5},
		{10, 5, 10.5},
	}
	for _, tc := range cases {
		p := Pattern{EPS: tc.eps, Correction: tc.correction}
		if got := p.EffectiveEPS(); got != tc.want {
			t.Fatalf("EffectiveEPS(%v, %v%%) = %v, want %v", tc.eps, tc.correction, got, tc.want)
		}
	}

	// Corrections at or below -100% clamp to the floor instead of going
	// non-positive.
	for _, correction := range []float64{-100, -150} {
		p := Pattern{EPS: 5, Correction: correction}
		if got := p.EffectiveEPS(); got <= 0 {
			t.Fatalf("EffectiveEPS with correction %v%% = %v, want positive floor", correction, got)
		}
	}
}
