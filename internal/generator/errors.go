package generator

import "fmt"

// UnknownFunctionError reports a field referencing a generator function
// that is not present in the registry.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown generator function %q", e.Name)
}

// InvalidParameterError reports missing or malformed generator parameters.
type InvalidParameterError struct {
	Function string
	Reason   string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameters for %q: %s", e.Function, e.Reason)
}

// EventValidationError reports a windows_event specification violating
// the event schema.
type EventValidationError struct {
	Reason string
}

func (e *EventValidationError) Error() string {
	return fmt.Sprintf("invalid windows event: %s", e.Reason)
}

// UnresolvedPlaceholderError reports a template placeholder with no
// corresponding field entry.
type UnresolvedPlaceholderError struct {
	Placeholder string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("template placeholder %q has no field definition", e.Placeholder)
}
