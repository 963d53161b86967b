// Package dialect abstracts the SQL syntax details that differ between
// database servers: positional placeholder tokens and identifier quoting.
package dialect

type Dialect interface {
	// Placeholder renders the positional parameter token for 1-based index n.
	Placeholder(n int) string
	// QuoteIdentifier quotes a table, column, or channel name.
	QuoteIdentifier(name string) string
}
