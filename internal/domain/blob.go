package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SnapshotArchiver moves computed valuation snapshots to cold storage. The
// tracker appends a batch per poll cycle; Flush writes the accumulated
// batches as one day-partitioned object.
type SnapshotArchiver interface {
	Append(snapshots []Snapshot)
	Flush(ctx context.Context) (int, error)
}
