package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/logsmith/logsmith/internal/metrics"
)

func TestCollectorAggregatesTrackers(t *testing.T) {
	c := metrics.NewCollector()

	apache := c.Tracker("apache")
	syslog := c.Tracker("syslog")
	apache.SetRunning(true)
	apache.Add(30)
	syslog.Add(12)

	stats := c.Stats(2 * time.Second)
	if stats.TotalEvents != 42 {
		t.Fatalf("TotalEvents = %d, want 42", stats.TotalEvents)
	}
	if stats.Running != 1 {
		t.Fatalf("Running = %d, want 1", stats.Running)
	}
	if stats.EventsPerSec != 21 {
		t.Fatalf("EventsPerSec = %.2f, want 21", stats.EventsPerSec)
	}
	if got := stats.Patterns["apache"]; got.Events != 30 || !got.Running {
		t.Fatalf("apache snapshot = %+v", got)
	}
	if got := stats.Patterns["syslog"]; got.Events != 12 || got.Running {
		t.Fatalf("syslog snapshot = %+v", got)
	}
}

func TestCollectorTrackerIsStable(t *testing.T) {
	c := metrics.NewCollector()
	first := c.Tracker("p")
	first.Add(5)
	second := c.Tracker("p")
	if second.Events() != 5 {
		t.Fatalf("second lookup lost counts: %d", second.Events())
	}
}

func TestCollectorStartedAtTracksRunStart(t *testing.T) {
	c := metrics.NewCollector()
	created := c.StartedAt()

	time.Sleep(5 * time.Millisecond)
	c.Start()

	started := c.StartedAt()
	if !started.After(created) {
		t.Fatalf("StartedAt = %s, want later than creation time %s", started, created)
	}
	if time.Since(started) > time.Second {
		t.Fatalf("StartedAt = %s, want recent", started)
	}
}

func TestCollectorWriteLatencies(t *testing.T) {
	c := metrics.NewCollector()
	for i := 0; i < 100; i++ {
		c.RecordWrite(time.Millisecond, nil)
	}
	c.RecordWrite(10*time.Millisecond, errors.New("disk full"))

	stats := c.Stats(time.Second)
	if stats.Failures != 1 {
		t.Fatalf("Failures = %d, want 1", stats.Failures)
	}
	if stats.MaxWriteLatency != 10*time.Millisecond {
		t.Fatalf("MaxWriteLatency = %s", stats.MaxWriteLatency)
	}
	if stats.P50WriteLatency < 900*time.Microsecond || stats.P50WriteLatency > 1100*time.Microsecond {
		t.Fatalf("P50WriteLatency = %s, want ~1ms", stats.P50WriteLatency)
	}
	if stats.P99WriteLatencyMs <= 0 {
		t.Fatalf("P99WriteLatencyMs = %.3f", stats.P99WriteLatencyMs)
	}
}
