package fassung

import (
	"context"

	"github.com/smorokin/fassung/database"
	"github.com/smorokin/fassung/schema"
	"github.com/smorokin/fassung/template"
)

// Querier executes template queries. *Conn and *Tx implement it.
type Querier interface {
	Query(ctx context.Context, t *template.Template) (database.Rows, error)
}

// Fetch runs the query and maps every result row into a T, in row order.
// T may be a record struct (see package schema) or, for single-column
// results, a plain value type.
func Fetch[T any](ctx context.Context, q Querier, t *template.Template) ([]T, error) {
	rows, err := q.Query(ctx, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := rows.Columns()
	var out []T
	for i := 0; rows.Next(); i++ {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec, err := schema.Scan[T](cols, vals, i)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRow runs the query and maps the first row into a T. It returns
// ErrNoRows when the result is empty; rows beyond the first are ignored.
func FetchRow[T any](ctx context.Context, q Querier, t *template.Template) (T, error) {
	var zero T
	rows, err := q.Query(ctx, t)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, ErrNoRows
	}
	vals, err := rows.Values()
	if err != nil {
		return zero, err
	}
	return schema.Scan[T](rows.Columns(), vals, 0)
}

// FetchVal runs the query and extracts its single value. The result must be
// exactly one row with exactly one column; anything else is a
// CardinalityError.
func FetchVal[T any](ctx context.Context, q Querier, t *template.Template) (T, error) {
	var zero T
	rows, err := q.Query(ctx, t)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	cols := rows.Columns()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, &CardinalityError{Rows: 0, Columns: len(cols)}
	}
	if len(cols) != 1 {
		return zero, &CardinalityError{Rows: 1, Columns: len(cols)}
	}
	vals, err := rows.Values()
	if err != nil {
		return zero, err
	}
	if rows.Next() {
		return zero, &CardinalityError{Rows: 2, Columns: len(cols)}
	}
	v, err := schema.Value[T](vals[0])
	if err != nil {
		return zero, &schema.MappingError{Column: cols[0], Err: err}
	}
	return v, nil
}

// Each runs the query and streams each mapped row to fn, preserving row
// order. Iteration stops at the first error from fn, which is returned
// unchanged.
func Each[T any](ctx context.Context, q Querier, t *template.Template, fn func(T) error) error {
	rows, err := q.Query(ctx, t)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols := rows.Columns()
	for i := 0; rows.Next(); i++ {
		vals, err := rows.Values()
		if err != nil {
			return err
		}
		rec, err := schema.Scan[T](cols, vals, i)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
