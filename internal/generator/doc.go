// Package generator produces synthetic log lines from pattern templates.
//
// A [Template] renders one line per call to Next: it picks one of the
// pattern's format strings at random and substitutes every ${name}
// placeholder with a value resolved from the pattern's fields. A field is
// either a static list (one entry chosen uniformly per event) or a named
// generator function dispatched through a [Registry].
//
// The registry is populated once at startup and read-only afterwards.
// Additional functions can be registered without touching the renderer:
//
//	generator.Default().Register("severity", nil, func(rnd *rand.Rand, _ map[string]string) (string, error) {
//		return severities[rnd.Intn(len(severities))], nil
//	})
//
// Unknown functions and unresolved placeholders fail closed with typed
// errors; they indicate a malformed pattern, not a transient condition.
package generator
