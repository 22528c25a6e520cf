package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParamNamer resolves positional shorthand arguments (func_randint 1 10)
// to named generator parameters. *generator.Registry satisfies it.
type ParamNamer interface {
	ParamNames(name string) ([]string, bool)
}

// LoadPatterns reads every pattern file referenced by cfg: the explicit
// pattern-file list plus all *.yml / *.yaml files in the patterns
// directory. The returned set is validated.
func LoadPatterns(cfg *Config, namer ParamNamer) ([]Pattern, error) {
	paths := append([]string(nil), cfg.PatternFiles...)

	if cfg.PatternsDir != "" {
		for _, glob := range []string{"*.yml", "*.yaml"} {
			matches, err := filepath.Glob(filepath.Join(cfg.PatternsDir, glob))
			if err != nil {
				return nil, err
			}
			paths = append(paths, matches...)
		}
		sort.Strings(paths)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no pattern files found (dir %q)", cfg.PatternsDir)
	}

	patterns := make([]Pattern, 0, len(paths))
	for _, path := range paths {
		p, err := LoadPatternFile(path, namer)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		patterns = append(patterns, p)
	}

	if err := ValidatePatterns(patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// LoadPatternFile parses a single YAML pattern definition.
func LoadPatternFile(path string, namer ParamNamer) (Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pattern{}, err
	}
	return ParsePattern(data, namer)
}

type rawPattern struct {
	Name          string               `yaml:"name"`
	Enabled       bool                 `yaml:"enabled"`
	Path          string               `yaml:"path"`
	EPS           float64              `yaml:"eps"`
	Correction    float64              `yaml:"correction"`
	TimePeriod    int                  `yaml:"time_period"`
	GeneratorType string               `yaml:"generator_type"`
	Template      yaml.Node            `yaml:"template"`
	Fields        map[string]yaml.Node `yaml:"fields"`
	Descriptor    *EventDescriptor     `yaml:"event_descriptor"`
	Event         *WindowsEvent        `yaml:"event"`
}

// ParsePattern decodes one pattern definition. The template entry may be
// a single string or a list; field entries accept a static list, the
// structured {function, params} form, or the string shorthand
// "func_<name> arg...".
func ParsePattern(data []byte, namer ParamNamer) (Pattern, error) {
	var raw rawPattern
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Pattern{}, err
	}

	p := Pattern{
		Name:          strings.TrimSpace(raw.Name),
		Enabled:       raw.Enabled,
		Path:          strings.TrimSpace(raw.Path),
		EPS:           raw.EPS,
		Correction:    raw.Correction,
		TimePeriod:    time.Duration(raw.TimePeriod) * time.Second,
		GeneratorType: GeneratorType(raw.GeneratorType),
	}
	if p.GeneratorType == "" {
		p.GeneratorType = GeneratorTypeTemplate
	}

	if p.GeneratorType == GeneratorTypeWindowsEvent {
		p.Descriptor = raw.Descriptor
		p.Event = raw.Event
		if raw.Template.Kind != 0 {
			var msg EventMessage
			if err := raw.Template.Decode(&msg); err != nil {
				return Pattern{}, fmt.Errorf("template must be a {message, values} mapping for windows_event patterns: %w", err)
			}
			p.Message = &msg
		}
	} else {
		templates, err := parseTemplates(raw.Template)
		if err != nil {
			return Pattern{}, err
		}
		p.Templates = templates
	}

	if len(raw.Fields) > 0 {
		p.Fields = make(map[string]Field, len(raw.Fields))
		for name, node := range raw.Fields {
			field, err := parseField(name, node, namer)
			if err != nil {
				return Pattern{}, err
			}
			p.Fields[name] = field
		}
	}

	return p, nil
}

func parseTemplates(node yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil // absent; caught by validation for enabled patterns
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		templates := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("template entries must be strings")
			}
			templates = append(templates, item.Value)
		}
		return templates, nil
	default:
		return nil, fmt.Errorf("template must be a string or a list of strings")
	}
}

func parseField(name string, node yaml.Node, namer ParamNamer) (Field, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.HasPrefix(node.Value, "func_") {
			return parseFuncShorthand(node.Value, namer), nil
		}
		// A bare literal acts as a single-value list.
		return Field{Values: []string{node.Value}}, nil

	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return Field{}, fmt.Errorf("field %q: list values must be scalars", name)
			}
			values = append(values, item.Value)
		}
		return Field{Values: values}, nil

	case yaml.MappingNode:
		var field Field
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val := node.Content[i+1]
			switch key {
			case "function", "func":
				field.Function = strings.TrimPrefix(val.Value, "func_")
			case "params":
				if val.Kind != yaml.MappingNode {
					return Field{}, fmt.Errorf("field %q: params must be a mapping", name)
				}
				field.Params = make(map[string]string, len(val.Content)/2)
				for j := 0; j+1 < len(val.Content); j += 2 {
					field.Params[val.Content[j].Value] = val.Content[j+1].Value
				}
			case "list", "values":
				if val.Kind != yaml.SequenceNode {
					return Field{}, fmt.Errorf("field %q: %s must be a list", name, key)
				}
				for _, item := range val.Content {
					field.Values = append(field.Values, item.Value)
				}
			default:
				return Field{}, fmt.Errorf("field %q: unknown key %q", name, key)
			}
		}
		if field.Function != "" && len(field.Values) > 0 {
			return Field{}, fmt.Errorf("field %q: function and values are mutually exclusive", name)
		}
		return field, nil
	}
	return Field{}, fmt.Errorf("field %q: unsupported definition", name)
}

// parseFuncShorthand expands the original "func_<name> arg..." form.
// Positional args map onto the registry's declared parameter names;
// surplus args fall back to argN keys.
func parseFuncShorthand(text string, namer ParamNamer) Field {
	tokens := strings.Fields(text)
	field := Field{Function: strings.TrimPrefix(tokens[0], "func_")}

	args := tokens[1:]
	if len(args) == 0 {
		return field
	}

	var names []string
	if namer != nil {
		names, _ = namer.ParamNames(field.Function)
	}
	field.Params = make(map[string]string, len(args))
	for i, arg := range args {
		key := fmt.Sprintf("arg%d", i+1)
		if i < len(names) {
			key = names[i]
		}
		field.Params[key] = arg
	}
	return field
}
