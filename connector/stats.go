package connector

// PoolStats is a snapshot of connection pool bookkeeping.
type PoolStats struct {
	// Total is the number of links the pool currently owns (idle + lent).
	Total int
	// Idle links are open and waiting for a caller.
	Idle int
	// Lent links are exclusively held by callers.
	Lent int
	// Waiting is the number of callers queued for a link.
	Waiting int
}
