package schema

import (
	"fmt"
	"reflect"

	"github.com/smorokin/fassung/cache"
	"github.com/smorokin/fassung/utils"
)

// plan binds one result column set to one record type. Plans are immutable
// once built and cached by (type, column set) fingerprint.
type plan struct {
	meta   *Meta
	fields []*Field // one entry per column; nil means the column is ignored
}

var planCache = cache.NewPlanCache[*plan](1024)

func planFor(meta *Meta, columns []string) (*plan, error) {
	key := utils.Mix64(utils.Fingerprint(meta.Type.String()), utils.FingerprintStrings(columns))
	if p, ok := planCache.Get(key); ok {
		return p, nil
	}

	p := &plan{meta: meta, fields: make([]*Field, len(columns))}
	matched := make(map[*Field]bool, len(meta.Fields))
	for i, col := range columns {
		if f, ok := meta.FieldByColumn(col); ok {
			p.fields[i] = f
			matched[f] = true
		}
	}
	for _, f := range meta.Fields {
		if !matched[f] && !f.Optional {
			return nil, &MappingError{Field: f.Name, Err: fmt.Errorf("no column %q in result", f.Column)}
		}
	}

	planCache.Add(key, p)
	return p, nil
}

// Scan coerces one result row into a value of type T. For struct shapes,
// columns match declared fields by exact name; extra columns are ignored.
// For scalar T the row must have exactly one column. row is the zero-based
// row index, used only for error reporting.
func Scan[T any](columns []string, values []any, row int) (T, error) {
	var out T
	dst := reflect.ValueOf(&out).Elem()

	shape := dst.Type()
	if shape.Kind() == reflect.Ptr {
		shape = shape.Elem()
	}
	if shape.Kind() != reflect.Struct || isScalarType(shape) {
		if len(columns) != 1 {
			return out, &MappingError{Row: row, Err: fmt.Errorf("cannot map %d columns into %s", len(columns), shape)}
		}
		if err := coerce(dst, values[0]); err != nil {
			return out, &MappingError{Row: row, Column: columns[0], Err: err}
		}
		return out, nil
	}

	meta, err := Introspect(shape)
	if err != nil {
		return out, err
	}
	p, err := planFor(meta, columns)
	if err != nil {
		if me, ok := err.(*MappingError); ok {
			me.Row = row
		}
		return out, err
	}

	if dst.Kind() == reflect.Ptr {
		dst.Set(reflect.New(shape))
		dst = dst.Elem()
	}
	for i, f := range p.fields {
		if f == nil {
			continue
		}
		fv := fieldByIndexAlloc(dst, f.Index)
		if err := coerce(fv, values[i]); err != nil {
			return out, &MappingError{Row: row, Column: columns[i], Field: f.Name, Err: err}
		}
	}
	return out, nil
}

// fieldByIndexAlloc walks an index path, allocating nil embedded pointers.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}
