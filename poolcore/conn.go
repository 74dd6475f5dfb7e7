package poolcore

import "context"

// Row is one opaque result record keyed by column name.
type Row map[string]any

// Conn is a single live connection to a backing data store.
// A Conn is leased to exactly one caller at a time; it is never shared.
type Conn interface {
	// Ping verifies the connection is still usable.
	Ping(ctx context.Context) error
	// Query runs one opaque parameterized statement and returns its rows.
	// Backends that do not produce rows return an empty slice.
	Query(ctx context.Context, statement string, params ...any) ([]Row, error)
	// Close releases the underlying resource.
	Close() error
}

// Dialer opens connections for a specific backend.
// Concrete dialers that hold shared handles also implement io.Closer.
type Dialer interface {
	Driver() Driver
	Dial(ctx context.Context) (Conn, error)
}

// CloneRows deep-copies a result set so cached values cannot be
// mutated through rows already handed out.
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		clone := make(Row, len(row))
		for k, v := range row {
			clone[k] = v
		}
		out[i] = clone
	}
	return out
}
