package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/logsmith/logsmith/internal/metrics"
	"github.com/logsmith/logsmith/internal/runner"
)

// PrintReport outputs a human-readable run summary.
func PrintReport(w io.Writer, result runner.Result, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Generation Results ---")
	fmt.Fprintf(w, "Total Events:      %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Write Failures:    %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", result.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(w, "Events/sec:        %.2f\n", stats.EventsPerSec)
	fmt.Fprintln(w, "\nWrite Latency:")
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxWriteLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanWriteLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50WriteLatency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99WriteLatency)

	if len(result.Patterns) > 0 {
		fmt.Fprintln(w, "\nPattern Breakdown:")
		patterns := append([]runner.PatternResult(nil), result.Patterns...)
		sort.Slice(patterns, func(i, j int) bool {
			return patterns[i].Events > patterns[j].Events
		})
		for _, p := range patterns {
			share := 0.0
			if stats.TotalEvents > 0 {
				share = (float64(p.Events) / float64(stats.TotalEvents)) * 100
			}
			fmt.Fprintf(w, "  - %s: events=%d (%.1f%%), reason=%s", p.Name, p.Events, share, p.Reason)
			if p.Err != nil {
				fmt.Fprintf(w, ", error=%v", p.Err)
			}
			fmt.Fprintln(w)
		}
	}
}

// Report is the JSON-serializable combination of per-pattern outcomes
// and aggregate metrics.
type Report struct {
	Results []runner.PatternResult `json:"results"`
	Stats   metrics.Stats          `json:"stats"`
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, result runner.Result, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{Results: result.Patterns, Stats: stats})
}
