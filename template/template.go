// Package template builds SQL statements from trusted literal text and
// untrusted parameter values without ever splicing a value into the text.
//
// A Template is an ordered sequence of literal SQL segments interleaved with
// slots. Literal text can only come from the format string handed to SQL;
// slot values can only ever become positional placeholders. A slot value may
// itself be a *Template, in which case its text and parameters are spliced
// inline during compilation, which makes optional fragments compose cleanly:
//
//	filter := template.MustSQL("AND name = {}", name)
//	q := template.MustSQL("SELECT * FROM users WHERE id = {} {}", id, filter)
package template

import "strings"

// Template is an immutable query template. The segment slice is always one
// longer than the value slice; an empty template is a single empty segment.
type Template struct {
	segments []string
	values   []any
}

// SQL parses a format string into a Template. Each "{}" marks a slot bound to
// the next argument in order. "{{" and "}}" produce literal braces. The
// number of slots must equal the number of arguments.
func SQL(format string, args ...any) (*Template, error) {
	var (
		segments []string
		sb       strings.Builder
		slot     int
	)
	for i := 0; i < len(format); i++ {
		switch c := format[i]; c {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			if i+1 >= len(format) || format[i+1] != '}' {
				return nil, &FormatError{Format: format, Reason: "unmatched '{'"}
			}
			segments = append(segments, sb.String())
			sb.Reset()
			slot++
			i++
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return nil, &FormatError{Format: format, Reason: "unmatched '}'"}
		default:
			sb.WriteByte(c)
		}
	}
	segments = append(segments, sb.String())
	if slot != len(args) {
		return nil, &FormatError{Format: format, Reason: "slot and argument counts differ"}
	}
	return &Template{segments: segments, values: args}, nil
}

// MustSQL is SQL for compile-time constant formats; it panics on a malformed
// format string.
func MustSQL(format string, args ...any) *Template {
	t, err := SQL(format, args...)
	if err != nil {
		panic(err)
	}
	return t
}

// Raw wraps an already-complete, trusted SQL string as a slot-free Template.
func Raw(sql string) *Template {
	return &Template{segments: []string{sql}}
}

// Empty returns a template that compiles to no text and no parameters.
// Splicing it into a parent is a no-op.
func Empty() *Template {
	return &Template{segments: []string{""}}
}

// Segments returns the literal segments. The invariant
// len(Segments()) == len(Values())+1 always holds.
func (t *Template) Segments() []string {
	out := make([]string, len(t.segments))
	copy(out, t.segments)
	return out
}

// Values returns the slot values in order.
func (t *Template) Values() []any {
	out := make([]any, len(t.values))
	copy(out, t.values)
	return out
}
