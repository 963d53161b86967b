package fassung

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/smorokin/fassung/database"
	"github.com/smorokin/fassung/template"
)

// TxStatus is the lifecycle state of a transaction.
type TxStatus int

const (
	TxOpen TxStatus = iota
	TxMarkedForRollback
	TxCommitted
	TxRolledBack
)

func (s TxStatus) String() string {
	switch s {
	case TxOpen:
		return "open"
	case TxMarkedForRollback:
		return "marked for rollback"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Tx is a transaction scoped to one leased connection. It proxies query
// methods to its connection while guarding against use after commit or
// rollback. Exactly one of COMMIT/ROLLBACK is issued per transaction.
// Nested transactions map to savepoints with the same invariant per level.
type Tx struct {
	conn   *Conn
	depth  int // 1 = top level, >1 = savepoint
	status TxStatus
}

// Status returns the transaction's current lifecycle state.
func (tx *Tx) Status() TxStatus {
	return tx.status
}

// Execute runs a statement inside the transaction.
func (tx *Tx) Execute(ctx context.Context, t *template.Template) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	return tx.conn.Execute(ctx, t)
}

// Query runs a query inside the transaction.
func (tx *Tx) Query(ctx context.Context, t *template.Template) (database.Rows, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.conn.Query(ctx, t)
}

// Begin starts a nested transaction backed by a savepoint.
func (tx *Tx) Begin(ctx context.Context) (*Tx, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	child := &Tx{conn: tx.conn, depth: tx.depth + 1}
	if _, err := tx.conn.exec(ctx, "SAVEPOINT "+child.savepoint()); err != nil {
		return nil, err
	}
	tx.conn.txDepth = child.depth
	return child, nil
}

// Transact brackets fn in a nested transaction.
func (tx *Tx) Transact(ctx context.Context, fn func(*Tx) error) error {
	child, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	return child.run(ctx, fn)
}

// Commit makes the transaction's effects permanent. For a nested transaction
// it releases the savepoint. A failed COMMIT leaves the transaction rolled
// back, which is what the server does with it.
func (tx *Tx) Commit(ctx context.Context) error {
	if err := tx.check(); err != nil {
		return err
	}
	sql := "COMMIT"
	if tx.depth > 1 {
		sql = "RELEASE SAVEPOINT " + tx.savepoint()
	}
	_, err := tx.conn.exec(ctx, sql)
	if localGuardError(err) {
		// Nothing reached the wire; the transaction is still open and a
		// terminal action is still owed.
		return err
	}
	tx.conn.txDepth = tx.depth - 1
	if err != nil {
		tx.status = TxRolledBack
		return err
	}
	tx.status = TxCommitted
	return nil
}

// Rollback abandons the transaction's effects. For a nested transaction it
// rolls back to the savepoint. Rollback is also the way out of the
// marked-for-rollback state.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.status == TxCommitted || tx.status == TxRolledBack {
		return fmt.Errorf("%w: already %s", ErrTxDone, tx.status)
	}
	sql := "ROLLBACK"
	if tx.depth > 1 {
		sql = "ROLLBACK TO SAVEPOINT " + tx.savepoint()
	}
	_, err := tx.conn.exec(ctx, sql)
	if localGuardError(err) {
		return err
	}
	tx.conn.txDepth = tx.depth - 1
	tx.status = TxRolledBack
	return err
}

// MarkForRollback poisons the transaction: no further statements run on it,
// and a scoped Transact rolls back at exit even if fn returns nil.
func (tx *Tx) MarkForRollback() {
	if tx.status == TxOpen {
		tx.status = TxMarkedForRollback
	}
}

func (tx *Tx) check() error {
	if tx.status != TxOpen {
		return fmt.Errorf("%w: transaction is %s", ErrTxDone, tx.status)
	}
	if tx.conn.txDepth != tx.depth {
		return fmt.Errorf("%w: an inner transaction is still open", ErrTxOpen)
	}
	return nil
}

func (tx *Tx) savepoint() string {
	return "fassung_sp_" + strconv.Itoa(tx.depth)
}

// localGuardError reports errors raised before any statement reached the
// wire. They must not move the transaction to a terminal state: the server
// side is untouched and still expects exactly one COMMIT or ROLLBACK.
func localGuardError(err error) bool {
	return errors.Is(err, ErrConnBusy) || errors.Is(err, ErrConnReleased)
}

// run executes fn and finishes the transaction on every exit path: COMMIT on
// a nil return, ROLLBACK on error, panic, or mark-for-rollback. Rollbacks
// use an uncancelable context so that a caller's cancellation cannot leave
// the transaction without a terminal action.
func (tx *Tx) run(ctx context.Context, fn func(*Tx) error) error {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		// Roll back, but never let a rollback failure replace the
		// original error.
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	switch tx.status {
	case TxMarkedForRollback:
		return tx.Rollback(context.WithoutCancel(ctx))
	case TxOpen:
		return tx.Commit(ctx)
	default:
		// fn finished the transaction itself.
		return nil
	}
}
