package fassung

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/smorokin/fassung/connector"
	"github.com/smorokin/fassung/database"
	"github.com/smorokin/fassung/dialect"
)

// Pool owns a bounded set of database links and lends them to callers.
// Links are created lazily up to the configured maximum; when all are lent,
// acquirers queue and are served in FIFO order. Broken links are discarded
// on release and a later acquire dials a replacement.
type Pool struct {
	dialer  database.Dialer
	dialect dialect.Dialect
	cfg     connector.Config

	mu      sync.Mutex
	idle    []*pooledLink
	total   int // idle + lent, including links currently being dialed
	waiters *list.List
	closed  bool
}

// pooledLink pairs a link with its health. broken is only written by the
// current lessee, so it needs no extra synchronization.
type pooledLink struct {
	link   database.Link
	broken bool
}

// waiter receives a link from a release, or nil as a signal to re-check the
// pool state (capacity freed, shutdown).
type waiter struct {
	ch chan *pooledLink
}

// NewPool creates a pool over the given dialer. It dials nothing until the
// first Acquire; use Connect for the eager, connection-string flavor.
func NewPool(dialer database.Dialer, d dialect.Dialect, cfg connector.Config) *Pool {
	cfg.ApplyDefaults()
	return &Pool{
		dialer:  dialer,
		dialect: d,
		cfg:     cfg,
		waiters: list.New(),
	}
}

// Acquire lends a connection to the caller. The caller must call Release on
// the returned Conn on every path. Acquire honors ctx and the configured
// acquire timeout; a caller cancelled while queued is removed from the queue
// without side effects.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if t := p.cfg.Pool.AcquireTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	pl, err := p.acquireLink(ctx)
	if err != nil {
		return nil, err
	}
	return newConn(p, pl), nil
}

// AcquireFunc runs fn with a leased connection and releases it on every exit
// path, including panics.
func (p *Pool) AcquireFunc(ctx context.Context, fn func(*Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}

func (p *Pool) acquireLink(ctx context.Context) (*pooledLink, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if n := len(p.idle); n > 0 {
			pl := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()
			return pl, nil
		}
		if p.total < p.cfg.Pool.MaxSize {
			p.total++
			p.mu.Unlock()
			pl, err := p.dial(ctx)
			if err != nil {
				p.mu.Lock()
				p.total--
				// Capacity freed without a release happening; let the
				// longest waiter re-check instead of stranding it.
				p.wakeOneLocked(nil)
				p.mu.Unlock()
				return nil, err
			}
			return pl, nil
		}

		w := &waiter{ch: make(chan *pooledLink, 1)}
		elem := p.waiters.PushBack(w)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			p.mu.Lock()
			select {
			case pl := <-w.ch:
				if pl != nil {
					// A release handed us a link in the same instant; put
					// it back rather than leaking it.
					p.returnLocked(pl)
				} else {
					// We swallowed the re-check signal meant for the queue;
					// pass it on or the next waiter is stranded.
					p.wakeOneLocked(nil)
				}
			default:
				p.waiters.Remove(elem)
			}
			p.mu.Unlock()
			return nil, fmt.Errorf("fassung: acquire: %w", ctx.Err())
		case pl := <-w.ch:
			if pl == nil {
				continue
			}
			return pl, nil
		}
	}
}

func (p *Pool) dial(ctx context.Context) (*pooledLink, error) {
	if t := p.cfg.ConnectTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	var link database.Link
	err := connector.Retry(ctx, p.cfg.Retry, func(ctx context.Context) error {
		var err error
		link, err = p.dialer.Dial(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fassung: dial: %w", err)
	}
	return &pooledLink{link: link}, nil
}

// releaseLink is called exactly once per lease.
func (p *Pool) releaseLink(pl *pooledLink) {
	p.mu.Lock()
	p.returnLocked(pl)
	p.mu.Unlock()
}

// returnLocked puts a link back under the pool's ownership: broken links are
// destroyed and their slot freed, healthy ones go to the longest waiter or
// the idle set.
func (p *Pool) returnLocked(pl *pooledLink) {
	if p.closed || pl.broken || pl.link.IsClosed() {
		p.total--
		p.wakeOneLocked(nil)
		go pl.link.Close(context.Background())
		return
	}
	if !p.wakeOneLocked(pl) {
		p.idle = append(p.idle, pl)
	}
}

// wakeOneLocked pops the longest-waiting acquirer and sends it pl.
func (p *Pool) wakeOneLocked(pl *pooledLink) bool {
	elem := p.waiters.Front()
	if elem == nil {
		return false
	}
	p.waiters.Remove(elem)
	elem.Value.(*waiter).ch <- pl
	return true
}

// warm dials links until MinSize is reached, placing them idle.
func (p *Pool) warm(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.closed || p.total >= p.cfg.Pool.MinSize {
			p.mu.Unlock()
			return nil
		}
		p.total++
		p.mu.Unlock()

		pl, err := p.dial(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return err
		}
		p.mu.Lock()
		p.returnLocked(pl)
		p.mu.Unlock()
	}
}

// Close shuts the pool down: new acquires fail with ErrPoolClosed, queued
// acquirers are woken and fail the same way, idle links are closed, and
// outstanding links are destroyed as their leases end. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	for p.wakeOneLocked(nil) {
	}
	p.mu.Unlock()

	for _, pl := range idle {
		_ = pl.link.Close(context.Background())
	}
}

// Stats returns a snapshot of the pool's bookkeeping.
func (p *Pool) Stats() connector.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return connector.PoolStats{
		Total:   p.total,
		Idle:    len(p.idle),
		Lent:    p.total - len(p.idle),
		Waiting: p.waiters.Len(),
	}
}
