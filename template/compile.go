package template

import (
	"reflect"
	"strings"

	"github.com/smorokin/fassung/dialect"
)

// Statement is the flattened output of Compile: the literal text with
// positional placeholders, plus the parameter values in placeholder order.
// No slot value ever appears inside Text.
type Statement struct {
	Text string
	Args []any
}

// Compile flattens t depth-first, left to right, into a single Statement.
// Placeholder numbering is contiguous from 1 across the whole tree: nested
// templates share the parent's running counter. Compile is pure; it fails
// only on cyclic nesting or on a slot value no driver could bind.
func Compile(t *Template, d dialect.Dialect) (Statement, error) {
	c := compiler{
		dialect:  d,
		visiting: make(map[*string]struct{}),
	}
	var sb strings.Builder
	if err := c.walk(t, &sb); err != nil {
		return Statement{}, err
	}
	return Statement{Text: sb.String(), Args: c.args}, nil
}

type compiler struct {
	dialect  dialect.Dialect
	args     []any
	counter  int
	visiting map[*string]struct{}
}

func (c *compiler) walk(t *Template, sb *strings.Builder) error {
	if len(t.segments) == 0 {
		// zero-value Template, nothing to contribute
		return nil
	}
	// The key is the segment backing array, not the Template address: value
	// copies of a template share the array, so a cycle closed through a
	// copied Template value is still caught.
	key := &t.segments[0]
	if _, ok := c.visiting[key]; ok {
		return ErrCyclicTemplate
	}
	c.visiting[key] = struct{}{}
	defer delete(c.visiting, key)

	for i, seg := range t.segments {
		sb.WriteString(seg)
		if i >= len(t.values) {
			continue
		}
		switch v := t.values[i].(type) {
		case *Template:
			if v == nil {
				continue // absent optional fragment, contributes nothing
			}
			if err := c.walk(v, sb); err != nil {
				return err
			}
		case Template:
			if err := c.walk(&v, sb); err != nil {
				return err
			}
		default:
			if err := c.bind(v, sb); err != nil {
				return err
			}
		}
	}
	return nil
}

// bind appends a placeholder for one scalar slot and records its value.
func (c *compiler) bind(v any, sb *strings.Builder) error {
	if !bindable(v) {
		return &UnsupportedValueError{Position: len(c.args) + 1, Type: reflect.TypeOf(v)}
	}
	c.counter++
	sb.WriteString(c.dialect.Placeholder(c.counter))
	c.args = append(c.args, v)
	return nil
}

// bindable rejects values no wire driver can encode as a parameter.
func bindable(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}
