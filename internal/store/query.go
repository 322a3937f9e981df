// Package store holds the storage-agnostic pieces of the local durable store:
// index queries and the change hub behind live queries.
package store

// Query probes a declared index. Eq matches a prefix of the index columns in
// order; From/To bound the next column inclusively. A query against an
// undeclared index yields no rows.
type Query struct {
	Index string
	Eq    []any
	From  any
	To    any
	Limit int
	Desc  bool
}

// On returns a query for index equal to the given prefix values.
func On(index string, eq ...any) Query {
	return Query{Index: index, Eq: eq}
}

// Between bounds the column after the equality prefix.
func (q Query) Between(from, to any) Query {
	q.From, q.To = from, to
	return q
}

// Take limits the number of returned rows.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Reverse orders results descending by the index columns.
func (q Query) Reverse() Query {
	q.Desc = true
	return q
}
