package ports

import "context"

// SnapshotStore keeps the last known good copy of a collection on durable
// storage.
type SnapshotStore interface {
	// Write replaces the stored snapshot for collection.
	Write(ctx context.Context, collection string, snapshot any) error
	// Read decodes the stored snapshot into out. It reports false when no
	// usable snapshot exists; that is never an error for the caller.
	Read(ctx context.Context, collection string, out any) bool
}
