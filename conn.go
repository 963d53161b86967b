package fassung

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/smorokin/fassung/database"
	"github.com/smorokin/fassung/dialect"
	"github.com/smorokin/fassung/template"
)

// Conn is a leased connection. It is exclusively owned by the caller holding
// the lease and executes at most one statement at a time; a second call
// while one is in flight fails with ErrConnBusy. Release returns the link to
// the pool and invalidates the Conn.
type Conn struct {
	pool         *Pool
	pl           *pooledLink
	dialect      dialect.Dialect
	queryTimeout time.Duration

	busy     atomic.Bool
	released atomic.Bool
	txDepth  int // current transaction nesting; only the lessee touches it
}

func newConn(p *Pool, pl *pooledLink) *Conn {
	return &Conn{
		pool:         p,
		pl:           pl,
		dialect:      p.dialect,
		queryTimeout: p.cfg.QueryTimeout,
	}
}

// Release returns the connection to the pool. It is safe to call more than
// once; only the first call has effect. Releasing with a transaction still
// open or a statement still in flight discards the link, since its session
// state is indeterminate.
func (c *Conn) Release() {
	if c == nil || c.released.Swap(true) {
		return
	}
	if c.txDepth > 0 || c.busy.Load() {
		c.pl.broken = true
	}
	c.pool.releaseLink(c.pl)
}

// Execute compiles the template and runs it, returning the affected row
// count. Wire errors pass through unchanged.
func (c *Conn) Execute(ctx context.Context, t *template.Template) (int64, error) {
	stmt, err := template.Compile(t, c.dialect)
	if err != nil {
		return 0, err
	}
	return c.exec(ctx, stmt.Text, stmt.Args...)
}

// Query compiles the template and runs it, returning the result rows. The
// connection stays busy until the rows are closed.
func (c *Conn) Query(ctx context.Context, t *template.Template) (database.Rows, error) {
	stmt, err := template.Compile(t, c.dialect)
	if err != nil {
		return nil, err
	}
	if err := c.enter(); err != nil {
		return nil, err
	}
	opCtx, cancel := c.opContext(ctx)
	rows, err := c.pl.link.Query(opCtx, stmt.Text, stmt.Args...)
	if err != nil {
		c.noteFailure(opCtx)
		cancel()
		c.exit()
		return nil, err
	}
	return &connRows{Rows: rows, conn: c, ctx: opCtx, cancel: cancel}, nil
}

// Begin starts a top-level transaction on this connection.
func (c *Conn) Begin(ctx context.Context) (*Tx, error) {
	if c.txDepth > 0 {
		return nil, ErrTxOpen
	}
	if _, err := c.exec(ctx, "BEGIN"); err != nil {
		return nil, err
	}
	c.txDepth = 1
	return &Tx{conn: c, depth: 1}, nil
}

// Transact brackets fn in a transaction: COMMIT on a nil return, ROLLBACK on
// an error or panic. The original failure is always re-raised unchanged.
func (c *Conn) Transact(ctx context.Context, fn func(*Tx) error) error {
	tx, err := c.Begin(ctx)
	if err != nil {
		return err
	}
	return tx.run(ctx, fn)
}

// Ping verifies the underlying link is alive.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.exit()
	err := c.pl.link.Ping(ctx)
	if err != nil {
		c.noteFailure(ctx)
	}
	return err
}

// Listen subscribes the connection to a notification channel.
func (c *Conn) Listen(ctx context.Context, channel string) error {
	_, err := c.exec(ctx, "LISTEN "+c.dialect.QuoteIdentifier(channel))
	return err
}

// Unlisten removes a channel subscription.
func (c *Conn) Unlisten(ctx context.Context, channel string) error {
	_, err := c.exec(ctx, "UNLISTEN "+c.dialect.QuoteIdentifier(channel))
	return err
}

// WaitForNotification blocks until a notification arrives on a listened
// channel or ctx ends. Cancelling the wait leaves the connection usable.
func (c *Conn) WaitForNotification(ctx context.Context) (*database.Notification, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.exit()
	n, err := c.pl.link.WaitForNotification(ctx)
	if err != nil {
		if c.pl.link.IsClosed() {
			c.pl.broken = true
		}
		return nil, err
	}
	return n, nil
}

// exec runs already-compiled statement text under the busy guard.
func (c *Conn) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := c.enter(); err != nil {
		return 0, err
	}
	defer c.exit()
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	n, err := c.pl.link.Exec(opCtx, sql, args...)
	if err != nil {
		c.noteFailure(opCtx)
		return 0, err
	}
	return n, nil
}

func (c *Conn) enter() error {
	if c.released.Load() {
		return ErrConnReleased
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrConnBusy
	}
	return nil
}

func (c *Conn) exit() {
	c.busy.Store(false)
}

func (c *Conn) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout > 0 {
		return context.WithTimeout(ctx, c.queryTimeout)
	}
	return ctx, func() {}
}

// noteFailure marks the link broken when a statement failed in a way that
// leaves the wire state indeterminate: a cancelled in-flight statement or a
// dead link. Plain server errors leave the link reusable.
func (c *Conn) noteFailure(ctx context.Context) {
	if ctx.Err() != nil || c.pl.link.IsClosed() {
		c.pl.broken = true
	}
}

// connRows keeps the connection busy for the lifetime of the result cursor,
// so a second statement can never interleave with the iteration.
type connRows struct {
	database.Rows
	conn   *Conn
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

func (r *connRows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.Rows.Close()
	if r.Rows.Err() != nil {
		r.conn.noteFailure(r.ctx)
	}
	r.cancel()
	r.conn.exit()
}
