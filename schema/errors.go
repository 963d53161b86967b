package schema

import (
	"errors"
	"fmt"
)

// errNullValue signals a null wire value arriving at a non-nullable field.
var errNullValue = errors.New("null value for non-nullable destination")

// MappingError reports a failure coercing one result row into a record
// shape. Row is the zero-based row index; Column and Field identify the
// mismatch when known.
type MappingError struct {
	Row    int
	Column string
	Field  string
	Err    error
}

func (e *MappingError) Error() string {
	switch {
	case e.Column != "" && e.Field != "":
		return fmt.Sprintf("schema: row %d: column %q -> field %q: %v", e.Row, e.Column, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("schema: row %d: field %q: %v", e.Row, e.Field, e.Err)
	default:
		return fmt.Sprintf("schema: row %d: %v", e.Row, e.Err)
	}
}

func (e *MappingError) Unwrap() error { return e.Err }
