// Package feed implements the streaming orderbook client. It maintains one
// up-to-date, immutable book snapshot while tolerating transient network
// failure, and publishes each snapshot with a single atomic pointer swap so
// the read path never takes a lock.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfeed/costsim/internal/domain"
)

const (
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second

	// readTimeout is the per-message read deadline. A connection that stays
	// silent past it is treated as stalled and reconnected.
	readTimeout = 60 * time.Second

	// latencyReportEvery controls how often the running average processing
	// latency is logged.
	latencyReportEvery = 100
)

// Config holds the stream's connection parameters.
type Config struct {
	// URL is the feed endpoint. Subscription is pre-established by the
	// connection target; no outbound control messages are sent.
	URL string
	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
}

// SnapshotHandler is called after each new snapshot is published.
type SnapshotHandler func(ctx context.Context, snap *domain.Snapshot)

// Stream connects to the market-data feed, parses each message into an
// immutable domain.Snapshot, and republishes the latest one. A Stream is
// created with New, driven by Run on a dedicated goroutine, and read from any
// goroutine via Snapshot.
type Stream struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	active atomic.Bool

	latest atomic.Pointer[domain.Snapshot]

	handlersMu sync.RWMutex
	handlers   []SnapshotHandler

	// Running processing-latency counters for periodic reporting.
	messageCount      int64
	totalProcessingMs float64
}

// New creates a Stream. It does not connect; call Run.
func New(cfg Config, logger *slog.Logger) *Stream {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Stream{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "orderbook_stream")),
	}
}

// OnSnapshot registers a handler invoked after every published snapshot.
// Handlers run on the receive goroutine and should return quickly.
func (s *Stream) OnSnapshot(h SnapshotHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Snapshot returns the most recently published snapshot, or nil before the
// first message arrives. The returned snapshot is immutable; callers may read
// it freely but must not modify it.
func (s *Stream) Snapshot() *domain.Snapshot {
	return s.latest.Load()
}

// Active reports whether the stream is currently running.
func (s *Stream) Active() bool {
	return s.active.Load()
}

// Run marks the stream active, connects, and receives messages until the
// context is cancelled or Close is called. An unexpected connection close
// while active triggers a reconnect and the loop resumes; the
// reconnect-then-resume step is a plain loop, never recursion, so stack usage
// stays bounded across arbitrarily many reconnects. Only the initial
// connection exhausting its retries is fatal.
func (s *Stream) Run(ctx context.Context) error {
	if !s.active.CompareAndSwap(false, true) {
		return fmt.Errorf("feed: stream already running")
	}
	defer s.active.Store(false)

	if err := s.connect(ctx); err != nil {
		return err
	}

	for s.active.Load() && ctx.Err() == nil {
		err := s.receiveUntilClosed(ctx)
		if err == nil || !s.active.Load() || ctx.Err() != nil {
			break
		}

		s.logger.Warn("connection lost, reconnecting",
			slog.String("error", err.Error()),
		)
		if err := s.connect(ctx); err != nil {
			return err
		}
	}

	s.closeConn()
	return ctx.Err()
}

// Close marks the stream inactive and closes the connection, unblocking any
// in-flight read. It is safe to call multiple times.
func (s *Stream) Close() error {
	s.active.Store(false)
	s.closeConn()
	return nil
}

// connect dials the feed, retrying up to MaxRetries times with a fixed delay
// between attempts. Exhausting the retries is fatal: the wrapped
// domain.ErrConnectFailed is returned and the caller must restart the stream.
func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		s.logger.Info("connecting to feed",
			slog.String("url", s.cfg.URL),
			slog.Int("attempt", attempt),
		)

		conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			s.logger.Info("feed connection established")
			return nil
		}
		lastErr = err
		s.logger.Error("connection attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt == s.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}

	return fmt.Errorf("feed: %w after %d attempts: %v",
		domain.ErrConnectFailed, s.cfg.MaxRetries, lastErr)
}

// receiveUntilClosed reads and processes messages until the connection drops
// or the stream is stopped. It returns the read error that ended the loop, or
// nil on a clean stop.
func (s *Stream) receiveUntilClosed(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("feed: not connected")
	}

	for s.active.Load() && ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !s.active.Load() || ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handleMessage(ctx, message)
	}
	return nil
}

func (s *Stream) closeConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		_ = s.conn.Close()
		s.conn = nil
	}
}

// handleMessage parses one inbound message, builds the snapshot, and
// publishes it. Malformed messages are logged and dropped; they never
// propagate.
func (s *Stream) handleMessage(ctx context.Context, raw []byte) {
	started := time.Now()

	var msg bookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Error("failed to parse feed message",
			slog.String("error", err.Error()),
			slog.Int("payload_len", len(raw)),
		)
		return
	}
	if msg.Asks == nil || msg.Bids == nil {
		s.logger.Warn("feed message without orderbook data",
			slog.Int("payload_len", len(raw)),
		)
		return
	}

	asks := toBookSide(msg.Asks, false)
	bids := toBookSide(msg.Bids, true)

	processingMs := float64(time.Since(started)) / float64(time.Millisecond)
	snap := &domain.Snapshot{
		Asks:         asks,
		Bids:         bids,
		CapturedAt:   time.Now(),
		ProcessingMs: processingMs,
	}
	s.latest.Store(snap)

	s.messageCount++
	s.totalProcessingMs += processingMs
	if s.messageCount%latencyReportEvery == 0 {
		s.logger.Info("feed processing stats",
			slog.Int64("messages", s.messageCount),
			slog.Float64("last_ms", processingMs),
			slog.Float64("avg_ms", s.totalProcessingMs/float64(s.messageCount)),
		)
	}

	s.handlersMu.RLock()
	handlers := s.handlers
	s.handlersMu.RUnlock()
	for _, h := range handlers {
		h(ctx, snap)
	}
}

// toBookSide converts raw levels into a sorted BookSide: descending by price
// for bids, ascending for asks.
func toBookSide(levels []rawLevel, descending bool) domain.BookSide {
	side := make(domain.BookSide, 0, len(levels))
	for _, lvl := range levels {
		if len(lvl) < 2 {
			continue
		}
		side = append(side, domain.PriceLevel{
			Price: float64(lvl[0]),
			Size:  float64(lvl[1]),
		})
	}
	sort.Slice(side, func(i, j int) bool {
		if descending {
			return side[i].Price > side[j].Price
		}
		return side[i].Price < side[j].Price
	})
	return side
}
