package generator

import (
	"fmt"
	"math/rand"
)

// FieldSpec describes one value source referenced by template placeholders.
// Exactly one of Values or Function is set. Specs are built once at load
// time and shared read-only for the pattern's entire run.
type FieldSpec struct {
	Values   []string          // static list; one entry chosen per event
	Function string            // registry function name
	Params   map[string]string // parameters passed to the function
}

// Resolve produces one value for a single event. List fields choose
// uniformly from their values; function fields dispatch through reg.
func Resolve(spec FieldSpec, reg *Registry, rnd *rand.Rand) (string, error) {
	if spec.Function != "" {
		return reg.Call(rnd, spec.Function, spec.Params)
	}
	if len(spec.Values) == 0 {
		return "", fmt.Errorf("list field has no values")
	}
	return spec.Values[rnd.Intn(len(spec.Values))], nil
}
