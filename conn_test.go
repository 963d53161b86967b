package fassung

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smorokin/fassung/connector"
	"github.com/smorokin/fassung/database"
	"github.com/smorokin/fassung/template"
)

func TestConnExecuteBindsTemplateValues(t *testing.T) {
	conn, link := newTestConn(t, func(l *fakeLink) {
		l.script("UPDATE users SET name = $1 WHERE id = $2", fakeResult{affected: 1})
	})

	n, err := conn.Execute(context.Background(),
		template.MustSQL("UPDATE users SET name = {} WHERE id = {}", "ada", int64(7)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	link.mu.Lock()
	defer link.mu.Unlock()
	require.Len(t, link.args, 1)
	assert.Equal(t, []any{"ada", int64(7)}, link.args[0])
}

func TestConnBusyWhileRowsOpen(t *testing.T) {
	conn, _ := newTestConn(t, func(l *fakeLink) {
		l.script("SELECT id FROM users", fakeResult{cols: []string{"id"}, rows: [][]any{{int64(1)}}})
	})

	rows, err := conn.Query(context.Background(), template.Raw("SELECT id FROM users"))
	require.NoError(t, err)

	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	assert.ErrorIs(t, err, ErrConnBusy)

	rows.Close()
	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err)
}

func TestConnRowsCloseIsIdempotent(t *testing.T) {
	conn, _ := newTestConn(t, func(l *fakeLink) {
		l.script("SELECT 1", fakeResult{cols: []string{"?column?"}, rows: [][]any{{int64(1)}}})
	})

	rows, err := conn.Query(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err)
	rows.Close()
	rows.Close()

	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err)
}

func TestConnQueryErrorLeavesConnUsable(t *testing.T) {
	conn, _ := newTestConn(t, func(l *fakeLink) {
		l.script("SELECT nope", fakeResult{err: errors.New(`column "nope" does not exist`)})
	})

	_, err := conn.Query(context.Background(), template.Raw("SELECT nope"))
	require.Error(t, err)

	// A plain server error is not a broken link; the conn keeps working.
	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err)
	assert.False(t, conn.pl.broken)
}

func TestConnCancelledStatementMarksLinkBroken(t *testing.T) {
	p, _ := newTestPool(1, nil)
	defer p.Close()
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = conn.Execute(ctx, template.Raw("SELECT pg_sleep(60)"))
	assert.ErrorIs(t, err, context.Canceled)

	conn.Release()
	waitForStats(t, p, func(s connector.PoolStats) bool { return s.Total == 0 })
}

func TestConnUseAfterRelease(t *testing.T) {
	p, _ := newTestPool(1, nil)
	defer p.Close()
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)

	conn.Release()
	conn.Release()

	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	assert.ErrorIs(t, err, ErrConnReleased)
	_, err = conn.Query(context.Background(), template.Raw("SELECT 1"))
	assert.ErrorIs(t, err, ErrConnReleased)
}

func TestConnListenQuotesChannelIdentifier(t *testing.T) {
	conn, link := newTestConn(t, nil)

	require.NoError(t, conn.Listen(context.Background(), "order_events"))
	require.NoError(t, conn.Unlisten(context.Background(), "order_events"))

	stmts := link.statements()
	assert.Contains(t, stmts, `LISTEN "order_events"`)
	assert.Contains(t, stmts, `UNLISTEN "order_events"`)
}

func TestConnWaitForNotification(t *testing.T) {
	conn, link := newTestConn(t, nil)

	link.notifications <- &database.Notification{PID: 42, Channel: "order_events", Payload: "created"}
	n, err := conn.WaitForNotification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "order_events", n.Channel)
	assert.Equal(t, "created", n.Payload)
}

func TestConnWaitForNotificationCancelKeepsConnUsable(t *testing.T) {
	conn, _ := newTestConn(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := conn.WaitForNotification(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, conn.pl.broken)
	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err)
}

func TestConnPing(t *testing.T) {
	conn, link := newTestConn(t, nil)

	require.NoError(t, conn.Ping(context.Background()))

	link.pingErr = errors.New("terminating connection")
	assert.Error(t, conn.Ping(context.Background()))
}

func TestConnExecuteRejectsUncompilableTemplate(t *testing.T) {
	conn, link := newTestConn(t, nil)

	_, err := conn.Execute(context.Background(),
		template.MustSQL("SELECT {}", func() {}))
	var uve *template.UnsupportedValueError
	assert.ErrorAs(t, err, &uve)
	assert.Empty(t, link.statements(), "nothing reaches the wire")
}
