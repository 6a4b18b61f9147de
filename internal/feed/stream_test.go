package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/costsim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStream() *Stream {
	return New(Config{URL: "ws://example.invalid/feed"}, testLogger())
}

func TestFeedNumberDecodesBothEncodings(t *testing.T) {
	var msg bookMessage
	raw := `{"asks":[["29880.0","1.5"]],"bids":[[29875,1.2]]}`

	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.Len(t, msg.Asks, 1)
	require.Len(t, msg.Bids, 1)
	assert.Equal(t, feedNumber(29880.0), msg.Asks[0][0])
	assert.Equal(t, feedNumber(1.5), msg.Asks[0][1])
	assert.Equal(t, feedNumber(29875.0), msg.Bids[0][0])
}

func TestFeedNumberRejectsGarbage(t *testing.T) {
	var n feedNumber
	assert.Error(t, n.UnmarshalJSON([]byte(`"not-a-number"`)))
}

func TestToBookSideSorts(t *testing.T) {
	levels := []rawLevel{
		{29883, 2.1},
		{29880, 1.5},
		{29881.5, 0.75},
	}

	asks := toBookSide(levels, false)
	require.Len(t, asks, 3)
	assert.Equal(t, 29880.0, asks[0].Price)
	assert.Equal(t, 29883.0, asks[2].Price)

	bids := toBookSide(levels, true)
	assert.Equal(t, 29883.0, bids[0].Price)
	assert.Equal(t, 29880.0, bids[2].Price)
}

func TestToBookSideSkipsShortLevels(t *testing.T) {
	levels := []rawLevel{
		{29880},
		{29881.5, 0.75},
	}

	side := toBookSide(levels, false)
	require.Len(t, side, 1)
	assert.Equal(t, 29881.5, side[0].Price)
}

func TestHandleMessagePublishesSnapshot(t *testing.T) {
	s := newTestStream()
	raw := `{
		"asks":[["29883","2.1"],["29880","1.5"],["29881.5","0.75"]],
		"bids":[["29873.5","0.85"],["29875","1.2"]]
	}`

	s.handleMessage(context.Background(), []byte(raw))

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 29880.0, snap.BestAsk())
	assert.Equal(t, 29875.0, snap.BestBid())
	assert.False(t, snap.CapturedAt.IsZero())
	assert.GreaterOrEqual(t, snap.ProcessingMs, 0.0)
}

func TestHandleMessageDropsMalformed(t *testing.T) {
	s := newTestStream()

	s.handleMessage(context.Background(), []byte(`{not json`))

	assert.Nil(t, s.Snapshot())
}

func TestHandleMessageRequiresBothSides(t *testing.T) {
	s := newTestStream()

	s.handleMessage(context.Background(), []byte(`{"asks":[["29880","1.5"]]}`))
	assert.Nil(t, s.Snapshot())

	s.handleMessage(context.Background(), []byte(`{"bids":[["29875","1.2"]]}`))
	assert.Nil(t, s.Snapshot())
}

func TestHandleMessageKeepsLastGoodSnapshot(t *testing.T) {
	s := newTestStream()

	s.handleMessage(context.Background(), []byte(`{"asks":[["29880","1.5"]],"bids":[["29875","1.2"]]}`))
	first := s.Snapshot()
	require.NotNil(t, first)

	s.handleMessage(context.Background(), []byte(`{not json`))
	assert.Same(t, first, s.Snapshot())
}

func TestOnSnapshotHandlerInvoked(t *testing.T) {
	s := newTestStream()

	var got []*domain.Snapshot
	s.OnSnapshot(func(ctx context.Context, snap *domain.Snapshot) {
		got = append(got, snap)
	})

	s.handleMessage(context.Background(), []byte(`{"asks":[["29880","1.5"]],"bids":[["29875","1.2"]]}`))

	require.Len(t, got, 1)
	assert.Same(t, s.Snapshot(), got[0])
}

func TestRunRejectsDoubleStart(t *testing.T) {
	s := newTestStream()
	s.active.Store(true)
	defer s.active.Store(false)

	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestConnectFailureWrapsSentinel(t *testing.T) {
	s := New(Config{
		URL:        "ws://127.0.0.1:1/feed",
		MaxRetries: 1,
		RetryDelay: 1,
	}, testLogger())

	err := s.connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnectFailed)
}
