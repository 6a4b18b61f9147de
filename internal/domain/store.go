package domain

import (
	"context"
	"io"
	"time"
)

// EstimateStore persists completed trade estimates for audit and later
// analysis. Implementations live in internal/store.
type EstimateStore interface {
	Insert(ctx context.Context, est TradeEstimate) error
	ListRecent(ctx context.Context, limit int) ([]TradeEstimate, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeEstimate, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SnapshotCache holds the latest published snapshot per asset for external
// consumers that cannot reach the in-process stream.
type SnapshotCache interface {
	SetLatest(ctx context.Context, asset string, snap Snapshot) error
	GetLatest(ctx context.Context, asset string) (Snapshot, error)
}

// EstimateBus publishes completed estimates to interested subscribers.
type EstimateBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads a blob to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged estimate rows out of hot storage into blobs.
type Archiver interface {
	Archive(ctx context.Context, before time.Time) (int64, error)
}
