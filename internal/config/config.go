package config

import (
	"fmt"
	"strings"
	"time"
)

type GeneratorType string

const (
	GeneratorTypeTemplate     GeneratorType = "template"
	GeneratorTypeWindowsEvent GeneratorType = "windows_event"
)

type PacingModel string

const (
	PacingModelWindow  PacingModel = "window"
	PacingModelUniform PacingModel = "uniform"
	PacingModelPoisson PacingModel = "poisson"
)

// Config is the resolved global configuration: config file settings with
// command-line flags applied on top.
type Config struct {
	PatternsDir   string      `mapstructure:"patterns_dir"`
	PatternFiles  []string    `mapstructure:"pattern_files"`
	MaxConcurrent int         `mapstructure:"max_concurrent"`
	Pacing        PacingModel `mapstructure:"pacing"`
	Seed          int64       `mapstructure:"seed"`
	Progress      bool        `mapstructure:"progress"`
	JSONOutput    bool        `mapstructure:"json_output"`
	Dashboard     bool        `mapstructure:"dashboard"`
	LogLevel      string      `mapstructure:"log_level"`
	ConfigFile    string      `mapstructure:"-"`
}

// Pattern is one named log-generation specification as loaded from a
// pattern definition file. Built once at load time, immutable afterwards.
type Pattern struct {
	Name          string
	Enabled       bool
	Path          string
	EPS           float64
	Correction    float64
	TimePeriod    time.Duration // 0 means run until cancelled
	GeneratorType GeneratorType
	Templates     []string
	Fields        map[string]Field

	// windows_event patterns only.
	Descriptor *EventDescriptor
	Event      *WindowsEvent
	Message    *EventMessage
}

// EventDescriptor is the fixed identity block of a windows_event pattern.
type EventDescriptor struct {
	ID      int    `yaml:"id"`
	Version int    `yaml:"version"`
	Channel int    `yaml:"channel"`
	Level   int    `yaml:"level"`
	Opcode  int    `yaml:"opcode"`
	Task    int    `yaml:"task"`
	Keyword string `yaml:"keyword"`
}

// WindowsEvent holds the event body of a windows_event pattern: the
// System block, EventData entries and optional rendering info.
type WindowsEvent struct {
	System    EventSystem    `yaml:"system"`
	Data      []EventDatum   `yaml:"data"`
	Rendering *RenderingInfo `yaml:"rendering"`
}

type EventProvider struct {
	Name string `yaml:"name"`
	GUID string `yaml:"guid"`
}

type EventSystem struct {
	Provider    EventProvider `yaml:"provider"`
	EventID     int           `yaml:"event_id"`
	Qualifiers  string        `yaml:"qualifiers"`
	Version     int           `yaml:"version"`
	Level       int           `yaml:"level"`
	Task        int           `yaml:"task"`
	Opcode      int           `yaml:"opcode"`
	Keywords    string        `yaml:"keywords"`
	TimeCreated string        `yaml:"time_created"`
	RecordID    int64         `yaml:"event_record_id"`
	ActivityID  string        `yaml:"activity_id"`
	ProcessID   int           `yaml:"process_id"`
	ThreadID    int           `yaml:"thread_id"`
	Channel     string        `yaml:"channel"`
	Computer    string        `yaml:"computer"`
}

type EventDatum struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// EventMessage is the windows_event form of the template entry: a
// message text with positional %N parameters and their values.
type EventMessage struct {
	Message string   `yaml:"message"`
	Values  []string `yaml:"values"`
}

type RenderingInfo struct {
	Culture string `yaml:"culture"`
}

// Field is a named value source for template placeholders: either a
// static list of values or a generator function call with parameters.
type Field struct {
	Values   []string
	Function string
	Params   map[string]string
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.PatternsDir) == "" && len(c.PatternFiles) == 0 {
		issues = append(issues, "no pattern definitions given (use --patterns or --pattern-file)")
	}
	if c.MaxConcurrent < 0 {
		issues = append(issues, "max-concurrent must be >= 0")
	}
	switch c.Pacing {
	case PacingModelWindow, PacingModelUniform, PacingModelPoisson:
	default:
		issues = append(issues, fmt.Sprintf("unknown pacing model %q", c.Pacing))
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// ValidatePatterns checks the invariants of a loaded pattern set: unique
// names, positive rates and non-empty templates for enabled patterns,
// well-formed fields. Registry membership of function fields is checked
// at render time, not here.
func ValidatePatterns(patterns []Pattern) error {
	var issues []string
	seen := make(map[string]bool, len(patterns))

	for _, p := range patterns {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			issues = append(issues, "pattern without a name")
			continue
		}
		if seen[name] {
			issues = append(issues, fmt.Sprintf("duplicate pattern name %q", name))
		}
		seen[name] = true

		if !p.Enabled {
			continue
		}
		if p.EPS <= 0 {
			issues = append(issues, fmt.Sprintf("%s: eps must be > 0", name))
		}
		if strings.TrimSpace(p.Path) == "" {
			issues = append(issues, fmt.Sprintf("%s: path is required", name))
		}
		switch p.GeneratorType {
		case GeneratorTypeTemplate:
			if len(p.Templates) == 0 {
				issues = append(issues, fmt.Sprintf("%s: at least one template is required", name))
			}
		case GeneratorTypeWindowsEvent:
			if p.Descriptor == nil {
				issues = append(issues, fmt.Sprintf("%s: event_descriptor is required", name))
			}
			if p.Event == nil {
				issues = append(issues, fmt.Sprintf("%s: event is required", name))
			}
			if p.Message == nil || strings.TrimSpace(p.Message.Message) == "" {
				issues = append(issues, fmt.Sprintf("%s: template message is required", name))
			}
		default:
			issues = append(issues, fmt.Sprintf("%s: unsupported generator_type %q", name, p.GeneratorType))
		}
		if p.TimePeriod < 0 {
			issues = append(issues, fmt.Sprintf("%s: time_period must be >= 0", name))
		}
		for fieldName, field := range p.Fields {
			if field.Function == "" && len(field.Values) == 0 {
				issues = append(issues, fmt.Sprintf("%s: field %q has neither values nor a function", name, fieldName))
			}
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
