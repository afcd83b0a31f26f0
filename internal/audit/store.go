package audit

import "context"

// Store is the durable append-only sink for trial-log entries. It is
// independent of the keyed verification store; the two never share a file.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
}
