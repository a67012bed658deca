package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"makersim/internal/domain"
)

// multipartThreshold is the payload size above which ArchiveResult switches
// from a single PutObject to a multipart upload. Tick-level result bundles
// for long feeds easily run to hundreds of megabytes.
const multipartThreshold = 32 * 1024 * 1024

// TradeArchiveStore provides read access to trades for archival purposes.
// The Postgres trade store satisfies it; the archiver only needs the
// time-ranged query, not the full domain.TradeStore.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error)
}

// ArchiveImpl implements domain.Archiver by serializing result bundles and
// aged trade logs to JSON and uploading them to S3.
//
// Deletion of archived trades from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to be executed after the
// archive has been verified.
type ArchiveImpl struct {
	writer domain.BlobWriter
	trades TradeArchiveStore
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveResult uploads a full result bundle, tick data included, as a single
// JSON object at results/YYYY/MM/{run_id}.json and returns the blob path.
// Large bundles go through a multipart upload.
func (a *ArchiveImpl) ArchiveResult(ctx context.Context, result domain.Result) (string, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive result marshal: %w", err)
	}

	path := resultPath(result)
	if int64(len(payload)) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(payload), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(payload), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive result upload: %w", err)
	}

	a.logger.Info("result archived",
		slog.String("run_id", result.RunID),
		slog.String("path", path),
		slog.Int("bytes", len(payload)),
	)
	return path, nil
}

// ArchiveTrades queries all persisted trades before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at archive/trades/YYYY-MM.jsonl.
// It returns the count of archived records.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	count := int64(len(trades))
	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before),
	)
	return count, nil
}

// resultPath builds the S3 key for a result bundle. The scheme lives in the
// domain package so the API can locate bundles the archiver wrote.
func resultPath(result domain.Result) string {
	return domain.ResultBlobPath(result.RunID, result.StartedAt)
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
