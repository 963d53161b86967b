package fassung

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by Acquire after the pool has shut down.
	ErrPoolClosed = errors.New("fassung: pool is closed")

	// ErrConnBusy is returned when a statement is started on a connection
	// that already has one in flight. Statements on one connection are
	// strictly sequential; their wire traffic never interleaves.
	ErrConnBusy = errors.New("fassung: connection is busy with another statement")

	// ErrConnReleased is returned when a connection is used after its lease
	// was released back to the pool.
	ErrConnReleased = errors.New("fassung: connection was released")

	// ErrTxDone is returned when a transaction is used after reaching a
	// terminal state.
	ErrTxDone = errors.New("fassung: transaction is no longer open")

	// ErrTxOpen is returned when an operation conflicts with an open
	// transaction, such as beginning a second top-level transaction on the
	// same connection.
	ErrTxOpen = errors.New("fassung: a transaction is already open")

	// ErrNoRows is returned by FetchRow when the result set is empty.
	ErrNoRows = errors.New("fassung: no rows in result set")
)

// CardinalityError reports a FetchVal result that was not exactly one row
// and one column. Rows is the observed row count, capped at 2.
type CardinalityError struct {
	Rows    int
	Columns int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("fassung: expected exactly one row and one column, got %d row(s) and %d column(s)", e.Rows, e.Columns)
}
