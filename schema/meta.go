package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Field describes one mapped struct field.
type Field struct {
	Name     string // Go field name
	Column   string // database column name, exact case-sensitive match
	Index    []int  // reflect index path, handles embedded structs
	Type     reflect.Type
	Optional bool // tagged `db:"name,optional"`: a missing column leaves the zero value
}

// Meta is the introspected shape of a record struct. Table is the derived
// default table name; the mapper itself never uses it, it exists for callers
// composing query templates from a record type.
type Meta struct {
	Type     reflect.Type
	Table    string
	Fields   []*Field
	byColumn map[string]*Field
}

// FieldByColumn returns the field bound to column, if any.
func (m *Meta) FieldByColumn(column string) (*Field, bool) {
	f, ok := m.byColumn[column]
	return f, ok
}

// Columns returns the mapped column names in field order.
func (m *Meta) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}

var metaCache sync.Map // reflect.Type -> *Meta

// Introspect resolves the record shape of t, caching the result per type.
// Column names come from `db` tags, falling back to the snake_case field
// name. Fields tagged `db:"-"` and unexported fields are skipped; anonymous
// embedded structs are flattened.
func Introspect(t reflect.Type) (*Meta, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := metaCache.Load(t); ok {
		return cached.(*Meta), nil
	}
	if t.Kind() != reflect.Struct || isScalarType(t) {
		return nil, fmt.Errorf("schema: %s is not a record struct", t)
	}

	meta := &Meta{
		Type:     t,
		Table:    TableName(t.Name()),
		byColumn: make(map[string]*Field),
	}
	if err := collectFields(meta, t, nil); err != nil {
		return nil, err
	}

	actual, _ := metaCache.LoadOrStore(t, meta)
	return actual.(*Meta), nil
}

func collectFields(meta *Meta, t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && !isScalarType(sf.Type) && sf.Tag.Get("db") == "" {
			if err := collectFields(meta, sf.Type, index); err != nil {
				return err
			}
			continue
		}

		column, optional, skip := parseTag(sf)
		if skip {
			continue
		}
		f := &Field{
			Name:     sf.Name,
			Column:   column,
			Index:    index,
			Type:     sf.Type,
			Optional: optional,
		}
		if _, dup := meta.byColumn[column]; dup {
			return fmt.Errorf("schema: %s: duplicate column %q", t, column)
		}
		meta.byColumn[column] = f
		meta.Fields = append(meta.Fields, f)
	}
	return nil
}

func parseTag(sf reflect.StructField) (column string, optional, skip bool) {
	tag := sf.Tag.Get("db")
	if tag == "-" {
		return "", false, true
	}
	name, rest, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(rest, ",") {
		if opt == "optional" {
			optional = true
		}
	}
	if name == "" {
		name = SnakeCase(sf.Name)
	}
	return name, optional, false
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	ulidType = reflect.TypeOf(ulid.ULID{})
)

// isScalarType reports struct (or array) types that map to a single column
// value rather than to a record shape.
func isScalarType(t reflect.Type) bool {
	switch t {
	case timeType, uuidType, ulidType:
		return true
	}
	return false
}
