package generator

import (
	"errors"
	"math/rand"
	"regexp"
	"time"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Template renders one log line per call from a pattern's format strings.
// It holds no cross-call state beyond the immutable spec and its random
// source; it is not safe for concurrent use, each worker owns its own.
type Template struct {
	formats  []string
	fields   map[string]FieldSpec
	registry *Registry
	rnd      *rand.Rand
}

// NewTemplate builds a renderer over one or more format strings. A zero
// seed derives one from the clock.
func NewTemplate(formats []string, fields map[string]FieldSpec, reg *Registry, seed int64) (*Template, error) {
	if len(formats) == 0 {
		return nil, errors.New("template: at least one format is required")
	}
	if reg == nil {
		reg = Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Template{
		formats:  formats,
		fields:   fields,
		registry: reg,
		rnd:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Next renders a single line: one format chosen uniformly, every ${name}
// placeholder substituted. A placeholder without a field entry or a field
// naming an unregistered function fails the whole line.
func (t *Template) Next() (string, error) {
	format := t.formats[0]
	if len(t.formats) > 1 {
		format = t.formats[t.rnd.Intn(len(t.formats))]
	}

	var resolveErr error
	line := placeholderPattern.ReplaceAllStringFunc(format, func(match string) string {
		if resolveErr != nil {
			return match
		}
		name := match[2 : len(match)-1]
		spec, ok := t.fields[name]
		if !ok {
			resolveErr = &UnresolvedPlaceholderError{Placeholder: name}
			return match
		}
		value, err := Resolve(spec, t.registry, t.rnd)
		if err != nil {
			resolveErr = err
			return match
		}
		return value
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return line, nil
}
