package generator

import (
	"math/rand"
	"sync"
)

// Func produces one field value per event. Implementations draw any
// randomness from rnd so a fixed seed reproduces the full value stream.
type Func func(rnd *rand.Rand, params map[string]string) (string, error)

type entry struct {
	fn         Func
	paramNames []string
}

// Registry maps generator function names to implementations. It is
// populated at startup and read-only during generation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces a generator function. paramNames declares the
// positional order used when a pattern file passes parameters as a bare
// argument list (e.g. "func_randint 1 10").
func (r *Registry) Register(name string, paramNames []string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{fn: fn, paramNames: paramNames}
}

// Call dispatches to the named function, failing closed on unknown names.
func (r *Registry) Call(rnd *rand.Rand, name string, params map[string]string) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return "", &UnknownFunctionError{Name: name}
	}
	return e.fn(rnd, params)
}

// ParamNames returns the declared positional parameter names for a function.
func (r *Registry) ParamNames(name string) ([]string, bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return append([]string(nil), e.paramNames...), true
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}()

// Default returns the process-wide registry with all builtin functions.
func Default() *Registry {
	return defaultRegistry
}
