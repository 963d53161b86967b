package fassung

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smorokin/fassung/template"
)

type account struct {
	ID      int64  `db:"id"`
	Email   string `db:"email"`
	Balance int64  `db:"balance"`
}

func scriptAccounts(l *fakeLink) {
	l.script("SELECT * FROM accounts", fakeResult{
		cols: []string{"id", "email", "balance"},
		rows: [][]any{
			{int64(1), "ada@example.com", int64(250)},
			{int64(2), "linus@example.com", int64(-40)},
		},
	})
}

func TestFetchMapsRowsInOrder(t *testing.T) {
	conn, _ := newTestConn(t, scriptAccounts)

	got, err := Fetch[account](context.Background(), conn, template.Raw("SELECT * FROM accounts"))
	require.NoError(t, err)
	assert.Equal(t, []account{
		{ID: 1, Email: "ada@example.com", Balance: 250},
		{ID: 2, Email: "linus@example.com", Balance: -40},
	}, got)

	// The cursor is closed, so the connection is free again.
	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err)
}

func TestFetchEmptyResult(t *testing.T) {
	conn, _ := newTestConn(t, func(l *fakeLink) {
		l.script("SELECT * FROM accounts", fakeResult{cols: []string{"id", "email", "balance"}})
	})

	got, err := Fetch[account](context.Background(), conn, template.Raw("SELECT * FROM accounts"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchRowReturnsFirstRow(t *testing.T) {
	conn, _ := newTestConn(t, scriptAccounts)

	got, err := FetchRow[account](context.Background(), conn, template.Raw("SELECT * FROM accounts"))
	require.NoError(t, err)
	assert.Equal(t, account{ID: 1, Email: "ada@example.com", Balance: 250}, got)
}

func TestFetchRowNoRows(t *testing.T) {
	conn, _ := newTestConn(t, func(l *fakeLink) {
		l.script("SELECT * FROM accounts", fakeResult{cols: []string{"id", "email", "balance"}})
	})

	_, err := FetchRow[account](context.Background(), conn, template.Raw("SELECT * FROM accounts"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestFetchValSingleValue(t *testing.T) {
	conn, _ := newTestConn(t, func(l *fakeLink) {
		l.script("SELECT count(*) FROM accounts", fakeResult{
			cols: []string{"count"},
			rows: [][]any{{int64(2)}},
		})
	})

	n, err := FetchVal[int64](context.Background(), conn, template.Raw("SELECT count(*) FROM accounts"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFetchValCardinality(t *testing.T) {
	tests := []struct {
		name     string
		res      fakeResult
		wantRows int
		wantCols int
	}{
		{
			name:     "no rows",
			res:      fakeResult{cols: []string{"count"}},
			wantRows: 0, wantCols: 1,
		},
		{
			name: "two columns",
			res: fakeResult{
				cols: []string{"id", "email"},
				rows: [][]any{{int64(1), "ada@example.com"}},
			},
			wantRows: 1, wantCols: 2,
		},
		{
			name: "two rows",
			res: fakeResult{
				cols: []string{"count"},
				rows: [][]any{{int64(1)}, {int64(2)}},
			},
			wantRows: 2, wantCols: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _ := newTestConn(t, func(l *fakeLink) {
				l.script("SELECT 1", tt.res)
			})

			_, err := FetchVal[int64](context.Background(), conn, template.Raw("SELECT 1"))
			var ce *CardinalityError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantRows, ce.Rows)
			assert.Equal(t, tt.wantCols, ce.Columns)
		})
	}
}

func TestEachStreamsRows(t *testing.T) {
	conn, _ := newTestConn(t, scriptAccounts)

	var emails []string
	err := Each(context.Background(), conn, template.Raw("SELECT * FROM accounts"),
		func(a account) error {
			emails = append(emails, a.Email)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com", "linus@example.com"}, emails)
}

func TestEachStopsOnCallbackError(t *testing.T) {
	conn, _ := newTestConn(t, scriptAccounts)
	boom := errors.New("boom")

	calls := 0
	err := Each(context.Background(), conn, template.Raw("SELECT * FROM accounts"),
		func(a account) error {
			calls++
			return boom
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	_, err = conn.Execute(context.Background(), template.Raw("SELECT 1"))
	require.NoError(t, err, "the cursor is closed after a callback error")
}

func TestFetchInsideTransaction(t *testing.T) {
	conn, link := newTestConn(t, scriptAccounts)

	err := conn.Transact(context.Background(), func(tx *Tx) error {
		got, err := Fetch[account](context.Background(), tx, template.Raw("SELECT * FROM accounts"))
		if err != nil {
			return err
		}
		assert.Len(t, got, 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, link.count("COMMIT"))
}
