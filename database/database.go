// Package database defines the wire collaborator: the minimal surface the
// rest of the module needs from an established database connection. The pgx
// implementation lives in pgx.go; tests substitute fakes.
package database

import "context"

// Dialer opens new links to the database server.
type Dialer interface {
	Dial(ctx context.Context) (Link, error)
}

// Link is one established connection. A Link is not safe for concurrent use;
// the pool guarantees exclusive ownership while lent.
type Link interface {
	// Query executes a parameterized statement and returns its result rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// Exec executes a parameterized statement and returns the affected row count.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	// WaitForNotification blocks until a LISTEN notification arrives or ctx ends.
	WaitForNotification(ctx context.Context) (*Notification, error)
	// Ping verifies the link is alive.
	Ping(ctx context.Context) error
	// IsClosed reports whether the underlying network link is gone.
	IsClosed() bool
	// Close tears down the link.
	Close(ctx context.Context) error
}

// Rows is a forward-only cursor over a query result.
type Rows interface {
	// Columns returns the result column names in order.
	Columns() []string
	Next() bool
	// Values returns the wire values of the current row.
	Values() ([]any, error)
	// Err returns the error, if any, that ended iteration early.
	Err() error
	Close()
}

// Notification is a message delivered on a listened channel.
type Notification struct {
	PID     uint32
	Channel string
	Payload string
}
