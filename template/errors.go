package template

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrCyclicTemplate indicates a template that contains itself, directly or
// through intermediate sub-templates.
var ErrCyclicTemplate = errors.New("template: cyclic nesting")

// FormatError reports a malformed format string or a slot/argument mismatch
// passed to SQL.
type FormatError struct {
	Format string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("template: invalid format %q: %s", e.Format, e.Reason)
}

// UnsupportedValueError reports a slot value that is neither a scalar nor a
// nested template. Position is the 1-based slot position in flattened,
// left-to-right order.
type UnsupportedValueError struct {
	Position int
	Type     reflect.Type
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("template: unsupported value of type %s at parameter position %d", e.Type, e.Position)
}
