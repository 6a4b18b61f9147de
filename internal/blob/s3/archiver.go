package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfeed/costsim/internal/domain"
)

// EstimateArchiveStore is the narrow store surface the archiver needs. The
// Postgres estimate store satisfies it.
type EstimateArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeEstimate, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// EstimateArchiver implements domain.Archiver by querying aged estimate rows,
// serialising them to gzipped JSONL, uploading the result to object storage,
// and pruning the archived rows from the primary store.
type EstimateArchiver struct {
	writer domain.BlobWriter
	store  EstimateArchiveStore
	logger *slog.Logger
}

// NewEstimateArchiver creates a new EstimateArchiver.
func NewEstimateArchiver(writer domain.BlobWriter, store EstimateArchiveStore, logger *slog.Logger) *EstimateArchiver {
	return &EstimateArchiver{
		writer: writer,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Archive moves all estimates created before the cutoff into a gzipped JSONL
// object at archive/estimates/YYYY-MM-DD.jsonl.gz, then deletes the archived
// rows. The count of archived records is returned. Rows are only deleted
// after the upload succeeds, so a failed upload leaves the table untouched.
func (a *EstimateArchiver) Archive(ctx context.Context, before time.Time) (int64, error) {
	ests, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive estimates query: %w", err)
	}
	if len(ests) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONLGzip(ests)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive estimates marshal: %w", err)
	}

	path := archivePath(before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/gzip"); err != nil {
		return 0, fmt.Errorf("s3blob: archive estimates upload: %w", err)
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(ests)), fmt.Errorf("s3blob: archive estimates prune: %w", err)
	}

	a.logger.Info("estimates archived",
		slog.String("path", path),
		slog.Int("count", len(ests)),
		slog.Int64("deleted", deleted),
		slog.Time("before", before),
	)

	return int64(len(ests)), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// date of the cutoff time.
//
//	archive/estimates/2025-01-15.jsonl.gz
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/estimates/%s.jsonl.gz", before.Format("2006-01-02"))
}

// marshalJSONLGzip serialises a slice of values as gzipped newline-delimited
// JSON. Each element is marshalled as a single compact JSON line followed by
// '\n'.
func marshalJSONLGzip[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	enc := json.NewEncoder(gz)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("jsonl gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*EstimateArchiver)(nil)
