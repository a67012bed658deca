package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader downloads and lists objects from blob storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ResultBlobPath is the canonical blob key for a run's archived result
// bundle, partitioned by the month the run started:
//
//	results/2026/08/2f2c7a7e-....json
//
// The archiver writes bundles here and the API reads them back.
func ResultBlobPath(runID string, startedAt time.Time) string {
	return "results/" + startedAt.Format("2006/01") + "/" + runID + ".json"
}

// Archiver moves finished results out of the primary store into blob storage.
type Archiver interface {
	// ArchiveResult uploads a full result bundle (trades + tick data) as a
	// single JSON object and returns its blob path.
	ArchiveResult(ctx context.Context, result Result) (string, error)

	// ArchiveTrades uploads all persisted trades older than the cutoff as
	// JSONL and returns the number archived.
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}
