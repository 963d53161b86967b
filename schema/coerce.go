package schema

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Value coerces a single wire value into T using the same fixed coercion
// table the row mapper uses.
func Value[T any](src any) (T, error) {
	var out T
	dst := reflect.ValueOf(&out).Elem()
	if err := coerce(dst, src); err != nil {
		return out, err
	}
	return out, nil
}

// coerce assigns a wire value into an addressable destination. The table is
// deliberately fixed: identical types pass through, integers widen into
// larger integers and floats, text parses into uuid/ulid, and nothing else.
// Text never coerces into numeric types.
func coerce(dst reflect.Value, src any) error {
	if src == nil {
		if dst.Kind() == reflect.Ptr || dst.Kind() == reflect.Interface || dst.Kind() == reflect.Slice || dst.Kind() == reflect.Map {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return errNullValue
	}

	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := coerce(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	sv := reflect.ValueOf(src)

	// Identical or directly assignable types pass through untouched.
	if sv.Type().AssignableTo(dst.Type()) && !(dst.Kind() == reflect.Slice && sv.Kind() == reflect.Slice) {
		dst.Set(sv)
		return nil
	}

	switch dst.Type() {
	case timeType:
		if t, ok := src.(time.Time); ok {
			dst.Set(reflect.ValueOf(t))
			return nil
		}
		return coerceErr(dst, src)
	case uuidType:
		return coerceUUID(dst, src)
	case ulidType:
		return coerceULID(dst, src)
	}

	switch dst.Kind() {
	case reflect.Bool:
		if b, ok := src.(bool); ok {
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := wireInt(sv); ok {
			if dst.OverflowInt(i) {
				return fmt.Errorf("value %d overflows %s", i, dst.Type())
			}
			dst.SetInt(i)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := wireInt(sv); ok {
			if i < 0 || dst.OverflowUint(uint64(i)) {
				return fmt.Errorf("value %d overflows %s", i, dst.Type())
			}
			dst.SetUint(uint64(i))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		// Integer wire values widen into floating-point fields.
		if i, ok := wireInt(sv); ok {
			dst.SetFloat(float64(i))
			return nil
		}
		if f, ok := wireFloat(sv); ok {
			if dst.Kind() == reflect.Float32 && dst.OverflowFloat(f) {
				return fmt.Errorf("value %g overflows float32", f)
			}
			dst.SetFloat(f)
			return nil
		}
	case reflect.String:
		switch s := src.(type) {
		case string:
			dst.SetString(s)
			return nil
		case []byte:
			dst.SetString(string(s))
			return nil
		}
	case reflect.Slice:
		return coerceSlice(dst, sv)
	}

	return coerceErr(dst, src)
}

// wireInt normalizes any integer wire representation to int64.
func wireInt(sv reflect.Value) (int64, bool) {
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := sv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func wireFloat(sv reflect.Value) (float64, bool) {
	switch sv.Kind() {
	case reflect.Float32, reflect.Float64:
		return sv.Float(), true
	}
	return 0, false
}

func coerceUUID(dst reflect.Value, src any) error {
	switch s := src.(type) {
	case uuid.UUID:
		dst.Set(reflect.ValueOf(s))
		return nil
	case string:
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid uuid text: %w", err)
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	case [16]byte:
		dst.Set(reflect.ValueOf(uuid.UUID(s)))
		return nil
	case []byte:
		id, err := uuid.FromBytes(s)
		if err != nil {
			return fmt.Errorf("invalid uuid bytes: %w", err)
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	}
	return coerceErr(dst, src)
}

func coerceULID(dst reflect.Value, src any) error {
	switch s := src.(type) {
	case ulid.ULID:
		dst.Set(reflect.ValueOf(s))
		return nil
	case string:
		id, err := ulid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid ulid text: %w", err)
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	case []byte:
		if len(s) != 16 {
			return fmt.Errorf("invalid ulid bytes: want 16, got %d", len(s))
		}
		var id ulid.ULID
		copy(id[:], s)
		dst.Set(reflect.ValueOf(id))
		return nil
	}
	return coerceErr(dst, src)
}

// coerceSlice handles composite wire values ([]any from array columns, and
// byte sequences) element by element, copying so the row buffer is never
// aliased.
func coerceSlice(dst reflect.Value, sv reflect.Value) error {
	if dst.Type().Elem().Kind() == reflect.Uint8 {
		if b, ok := sv.Interface().([]byte); ok {
			out := make([]byte, len(b))
			copy(out, b)
			dst.SetBytes(out)
			return nil
		}
		if s, ok := sv.Interface().(string); ok {
			dst.SetBytes([]byte(s))
			return nil
		}
		return coerceErr(dst, sv.Interface())
	}
	if sv.Kind() != reflect.Slice {
		return coerceErr(dst, sv.Interface())
	}
	out := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
	for i := 0; i < sv.Len(); i++ {
		elem := sv.Index(i).Interface()
		if err := coerce(out.Index(i), elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func coerceErr(dst reflect.Value, src any) error {
	return fmt.Errorf("cannot coerce %T into %s", src, dst.Type())
}
