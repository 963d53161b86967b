package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PgxDialer opens pgx connections from a parsed connection config.
type PgxDialer struct {
	config *pgx.ConnConfig
}

// NewPgxDialer parses a PostgreSQL connection string. Malformed strings fail
// here, before any network attempt.
func NewPgxDialer(dsn string) (*PgxDialer, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return &PgxDialer{config: cfg}, nil
}

func (d *PgxDialer) Dial(ctx context.Context) (Link, error) {
	conn, err := pgx.ConnectConfig(ctx, d.config)
	if err != nil {
		return nil, err
	}
	return &PgxLink{conn: conn}, nil
}

// PgxLink implements Link over a single *pgx.Conn.
type PgxLink struct {
	conn *pgx.Conn
}

func (l *PgxLink) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := l.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

func (l *PgxLink) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := l.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (l *PgxLink) WaitForNotification(ctx context.Context) (*Notification, error) {
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return nil, err
	}
	return &Notification{PID: n.PID, Channel: n.Channel, Payload: n.Payload}, nil
}

func (l *PgxLink) Ping(ctx context.Context) error {
	return l.conn.Ping(ctx)
}

func (l *PgxLink) IsClosed() bool {
	return l.conn.IsClosed()
}

func (l *PgxLink) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}

// PgxRows adapts pgx.Rows to the Rows interface.
type PgxRows struct {
	rows pgx.Rows
	cols []string
}

func (r *PgxRows) Columns() []string {
	if r.cols == nil {
		fds := r.rows.FieldDescriptions()
		r.cols = make([]string, len(fds))
		for i, fd := range fds {
			r.cols[i] = fd.Name
		}
	}
	return r.cols
}

func (r *PgxRows) Next() bool { return r.rows.Next() }

func (r *PgxRows) Values() ([]any, error) { return r.rows.Values() }

func (r *PgxRows) Err() error { return r.rows.Err() }

func (r *PgxRows) Close() { r.rows.Close() }

var _ Link = (*PgxLink)(nil)
var _ Dialer = (*PgxDialer)(nil)
