package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/logsmith/logsmith/internal/metrics"
)

// RunConfig holds generation run parameters for display.
type RunConfig struct {
	Patterns      int    // Number of enabled patterns
	MaxConcurrent int    // Concurrency cap (0 = all at once)
	Pacing        string // Pacing model name
	Seed          int64  // Random seed (0 = time-based)
	ConfigFile    string // Path to config file if used
}

// Dashboard renders a live terminal UI for generation metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid         *ui.Grid
	rateSparkle  *widgets.SparklineGroup
	latencyPara  *widgets.Paragraph
	rateGauge    *widgets.Gauge
	patternList  *widgets.List
	summaryPara  *widgets.Paragraph
	metricsPara  *widgets.Paragraph
	rateHistory  []float64
	peakRate     float64
	runDuration  time.Duration
	startTime    time.Time
	runConfig    RunConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:    collector,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		rateHistory:  make([]float64, 0, 100),
		startTime:    time.Now(),
		runConfig:    cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Event Rate Sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Events/sec"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.rateSparkle = widgets.NewSparklineGroup(sparkline)
	d.rateSparkle.Title = "Event Rate"
	d.rateSparkle.BorderStyle.Fg = ui.ColorCyan

	// Write Latency Paragraph
	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Write Latency"
	d.latencyPara.Text = "Max: 0ms\nMean: 0ms\nP50: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	// Rate Gauge
	d.rateGauge = widgets.NewGauge()
	d.rateGauge.Title = "Events Per Second"
	d.rateGauge.Percent = 0
	d.rateGauge.BarColor = ui.ColorBlue
	d.rateGauge.BorderStyle.Fg = ui.ColorCyan
	d.rateGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Pattern List
	d.patternList = widgets.NewList()
	d.patternList.Title = "Patterns"
	d.patternList.Rows = []string{"Awaiting data"}
	d.patternList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.patternList.BorderStyle.Fg = ui.ColorCyan

	// Summary Paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	// Metrics Paragraph (plain text summary)
	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.15,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.5, d.rateGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.3,
			ui.NewCol(0.65, d.rateSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.35,
			ui.NewCol(1.0, d.patternList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.runDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.runDuration)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.collector.Stats(elapsed)

	currentRate := stats.EventsPerSec
	d.rateHistory = append(d.rateHistory, currentRate)
	if len(d.rateHistory) > 100 {
		d.rateHistory = d.rateHistory[1:]
	}
	d.rateSparkle.Sparklines[0].Data = d.rateHistory
	d.rateSparkle.Title = fmt.Sprintf("Event Rate | Current: %.1f eps | Peak: %.1f eps",
		currentRate, d.peakRate)

	if currentRate > d.peakRate {
		d.peakRate = currentRate
	}
	maxRate := 100.0
	if d.peakRate > maxRate {
		maxRate = d.peakRate
	}
	ratePercent := int((currentRate / maxRate) * 100)
	if ratePercent > 100 {
		ratePercent = 100
	}
	d.rateGauge.Percent = ratePercent
	d.rateGauge.Label = fmt.Sprintf("%.1f eps", currentRate)

	d.summaryPara.Text = fmt.Sprintf(
		"%s\nElapsed: %s | Events: %d | Active Patterns: %d",
		d.formatRunParams(),
		elapsed.Round(time.Second),
		stats.TotalEvents,
		stats.Running,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Events:      %d\nWrite Failures:    %d\nCurrent Rate:      %.2f eps\nMean Latency:      %.2fms\nP50/P99:           %.2f / %.2f ms",
		stats.TotalEvents,
		stats.Failures,
		currentRate,
		stats.MeanWriteLatencyMs,
		stats.P50WriteLatencyMs,
		stats.P99WriteLatencyMs,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Max:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP99:  %.2fms",
		stats.MaxWriteLatencyMs,
		stats.MeanWriteLatencyMs,
		stats.P50WriteLatencyMs,
		stats.P99WriteLatencyMs,
	)

	d.patternList.Rows = formatPatternRows(stats)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatPatternRows(stats metrics.Stats) []string {
	if len(stats.Patterns) == 0 {
		return []string{"[No pattern data](fg:green)"}
	}
	type patternRow struct {
		name string
		stat metrics.PatternStats
	}
	rows := make([]patternRow, 0, len(stats.Patterns))
	for name, stat := range stats.Patterns {
		rows = append(rows, patternRow{name: name, stat: stat})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].stat.Events == rows[j].stat.Events {
			return rows[i].name < rows[j].name
		}
		return rows[i].stat.Events > rows[j].stat.Events
	})
	formatted := make([]string, 0, len(rows))
	for _, entry := range rows {
		share := 0.0
		if stats.TotalEvents > 0 {
			share = (float64(entry.stat.Events) / float64(stats.TotalEvents)) * 100
		}
		state := "[done](fg:yellow)"
		if entry.stat.Running {
			state = "[running](fg:green)"
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) | %5.1f%% | events %d | %s",
			entry.name,
			share,
			entry.stat.Events,
			state,
		))
	}
	return formatted
}

// formatRunParams formats the run configuration parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Patterns > 0 {
		parts = append(parts, fmt.Sprintf("Patterns: %d", d.runConfig.Patterns))
	}

	if d.runConfig.MaxConcurrent > 0 {
		parts = append(parts, fmt.Sprintf("Concurrent: %d", d.runConfig.MaxConcurrent))
	} else {
		parts = append(parts, "Concurrent: all")
	}

	if d.runConfig.Pacing != "" {
		parts = append(parts, fmt.Sprintf("Pacing: %s", d.runConfig.Pacing))
	}

	if d.runConfig.Seed != 0 {
		parts = append(parts, fmt.Sprintf("Seed: %d", d.runConfig.Seed))
	}

	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
