package fassung

import (
	"context"
	"sync"

	"github.com/smorokin/fassung/connector"
	"github.com/smorokin/fassung/database"
	"github.com/smorokin/fassung/dialect"
)

// fakeResult scripts the outcome of one statement on a fakeLink.
type fakeResult struct {
	cols     []string
	rows     [][]any
	affected int64
	err      error
}

// fakeLink is an in-memory wire collaborator. It records every statement in
// order, so tests can count BEGIN/COMMIT/ROLLBACK traffic and inspect bound
// parameters.
type fakeLink struct {
	mu            sync.Mutex
	log           []string
	args          [][]any
	results       map[string]fakeResult
	closed        bool
	closeCalls    int
	pingErr       error
	notifications chan *database.Notification
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		results:       make(map[string]fakeResult),
		notifications: make(chan *database.Notification, 4),
	}
}

func (l *fakeLink) script(sql string, res fakeResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results[sql] = res
}

func (l *fakeLink) record(sql string, args []any) fakeResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = append(l.log, sql)
	l.args = append(l.args, args)
	return l.results[sql]
}

// count returns how many times sql was executed.
func (l *fakeLink) count(sql string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.log {
		if s == sql {
			n++
		}
	}
	return n
}

func (l *fakeLink) statements() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.log))
	copy(out, l.log)
	return out
}

func (l *fakeLink) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := l.record(sql, args)
	if res.err != nil {
		return nil, res.err
	}
	return &fakeRows{cols: res.cols, rows: res.rows}, nil
}

func (l *fakeLink) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res := l.record(sql, args)
	return res.affected, res.err
}

func (l *fakeLink) WaitForNotification(ctx context.Context) (*database.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n := <-l.notifications:
		return n, nil
	}
}

func (l *fakeLink) Ping(ctx context.Context) error {
	return l.pingErr
}

func (l *fakeLink) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.closeCalls++
	return nil
}

func (l *fakeLink) markClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// fakeRows replays a scripted result set.
type fakeRows struct {
	cols   []string
	rows   [][]any
	cur    []any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Columns() []string { return r.cols }

func (r *fakeRows) Next() bool {
	if r.closed || r.idx >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.idx]
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.cur, nil }

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() { r.closed = true }

// fakeDialer hands out fresh fakeLinks, optionally scripted via setup.
type fakeDialer struct {
	mu      sync.Mutex
	links   []*fakeLink
	dials   int
	dialErr error
	setup   func(*fakeLink)
}

func (d *fakeDialer) Dial(ctx context.Context) (database.Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	l := newFakeLink()
	if d.setup != nil {
		d.setup(l)
	}
	d.links = append(d.links, l)
	return l, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func newTestPool(maxSize int, setup func(*fakeLink)) (*Pool, *fakeDialer) {
	d := &fakeDialer{setup: setup}
	cfg := connector.Config{
		Pool: connector.PoolConfig{MaxSize: maxSize},
	}
	return NewPool(d, dialect.NewPostgresDialect(), cfg), d
}
