package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/logsmith/logsmith/internal/config"
	"github.com/logsmith/logsmith/internal/dashboard"
	"github.com/logsmith/logsmith/internal/generator"
	"github.com/logsmith/logsmith/internal/metrics"
	"github.com/logsmith/logsmith/internal/output"
	"github.com/logsmith/logsmith/internal/runner"
)

const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := configureLogging(cfg.LogLevel); err != nil {
		return err
	}

	registry := generator.Default()
	patterns, err := config.LoadPatterns(cfg, registry)
	if err != nil {
		return err
	}

	runPatterns, err := toRunnerPatterns(patterns, registry, cfg.Seed)
	if err != nil {
		return err
	}

	enabled := 0
	for _, p := range runPatterns {
		if p.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no enabled patterns in %d loaded definition(s)", len(patterns))
	}
	log.WithFields(log.Fields{
		"patterns": enabled,
		"pacing":   cfg.Pacing,
	}).Info("starting generation")

	collector := metrics.NewCollector()

	opts := runner.Options{
		Patterns:      runPatterns,
		MaxConcurrent: cfg.MaxConcurrent,
		Pacing:        toRunnerPacing(cfg.Pacing),
		Collector:     collector,
		RandomSeed:    cfg.Seed,
	}

	scheduler := runner.New(opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			Patterns:      enabled,
			MaxConcurrent: cfg.MaxConcurrent,
			Pacing:        string(cfg.Pacing),
			Seed:          cfg.Seed,
			ConfigFile:    cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if cfg.Progress && !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}()
	}

	// Mark the actual start time in the collector so rate calculations
	// exclude setup time.
	collector.Start()
	result := scheduler.Run(ctx)

	var stats metrics.Stats
	if dash != nil {
		// Tear the UI down before printing, then snapshot through the
		// dashboard so the report covers its full display window.
		dash.Stop()
		stats = dash.GetFinalStats()
	} else {
		stats = collector.Stats(result.Duration)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, result, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, result, stats)
	}

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%d pattern(s) failed", failed)
	}
	return nil
}

func configureLogging(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	log.SetOutput(os.Stderr)
	return nil
}

// toRunnerPatterns builds one template renderer per enabled pattern.
// With a fixed seed each pattern gets a distinct derived seed so their
// value streams stay independent but reproducible.
func toRunnerPatterns(patterns []config.Pattern, reg *generator.Registry, seed int64) ([]runner.Pattern, error) {
	result := make([]runner.Pattern, 0, len(patterns))
	for i, p := range patterns {
		rp := runner.Pattern{
			Name:       p.Name,
			Enabled:    p.Enabled,
			Path:       p.Path,
			EPS:        p.EPS,
			Correction: p.Correction,
			Period:     p.TimePeriod,
		}
		if p.Enabled {
			if p.EPS*(1+p.Correction/100) <= 0 {
				log.WithFields(log.Fields{
					"pattern":    p.Name,
					"correction": p.Correction,
				}).Warn("correction cancels the configured rate; clamping to minimum")
			}
			patternSeed := seed
			if patternSeed != 0 {
				patternSeed += int64(i)
			}
			switch p.GeneratorType {
			case config.GeneratorTypeWindowsEvent:
				ev, err := generator.NewWindowsEvent(toWindowsEventSpec(p), reg, patternSeed)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", p.Name, err)
				}
				rp.Source = ev
			default:
				tmpl, err := generator.NewTemplate(p.Templates, toFieldSpecs(p.Fields), reg, patternSeed)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", p.Name, err)
				}
				rp.Source = tmpl
			}
		}
		result = append(result, rp)
	}
	return result, nil
}

// toWindowsEventSpec converts the YAML-shaped windows_event definition
// into the generator's validated form. Pattern validation guarantees the
// descriptor, event and message blocks are present.
func toWindowsEventSpec(p config.Pattern) generator.WindowsEventSpec {
	spec := generator.WindowsEventSpec{
		Descriptor: generator.EventDescriptor{
			ID:      p.Descriptor.ID,
			Version: p.Descriptor.Version,
			Channel: p.Descriptor.Channel,
			Level:   p.Descriptor.Level,
			Opcode:  p.Descriptor.Opcode,
			Task:    p.Descriptor.Task,
			Keyword: p.Descriptor.Keyword,
		},
		Message: generator.EventMessage{
			Text:   p.Message.Message,
			Values: p.Message.Values,
		},
		System: generator.EventSystem{
			Provider: generator.EventProvider{
				Name: p.Event.System.Provider.Name,
				GUID: p.Event.System.Provider.GUID,
			},
			EventID:     p.Event.System.EventID,
			Qualifiers:  p.Event.System.Qualifiers,
			Version:     p.Event.System.Version,
			Level:       p.Event.System.Level,
			Task:        p.Event.System.Task,
			Opcode:      p.Event.System.Opcode,
			Keywords:    p.Event.System.Keywords,
			TimeCreated: p.Event.System.TimeCreated,
			RecordID:    p.Event.System.RecordID,
			ActivityID:  p.Event.System.ActivityID,
			ProcessID:   p.Event.System.ProcessID,
			ThreadID:    p.Event.System.ThreadID,
			Channel:     p.Event.System.Channel,
			Computer:    p.Event.System.Computer,
		},
	}
	for _, d := range p.Event.Data {
		spec.Data = append(spec.Data, generator.EventDatum{Name: d.Name, Type: d.Type, Value: d.Value})
	}
	if p.Event.Rendering != nil {
		spec.Rendering = &generator.RenderingInfo{Culture: p.Event.Rendering.Culture}
	}
	return spec
}

func toFieldSpecs(fields map[string]config.Field) map[string]generator.FieldSpec {
	if len(fields) == 0 {
		return nil
	}
	specs := make(map[string]generator.FieldSpec, len(fields))
	for name, f := range fields {
		specs[name] = generator.FieldSpec{
			Values:   f.Values,
			Function: f.Function,
			Params:   f.Params,
		}
	}
	return specs
}

func toRunnerPacing(model config.PacingModel) runner.PacingModel {
	switch model {
	case config.PacingModelPoisson:
		return runner.PacingModelPoisson
	case config.PacingModelUniform:
		return runner.PacingModelUniform
	default:
		return runner.PacingModelWindow
	}
}
