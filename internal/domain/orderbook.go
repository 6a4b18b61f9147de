package domain

import "time"

// PriceLevel is a single price+size entry on one side of the book.
// A zero-size level is a no-op and contributes nothing to depth sums.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BookSide is an ordered sequence of price levels: asks ascending by price,
// bids descending. The feed delivers full replacement snapshots, so a side is
// always the product of a fresh sort, never an incremental merge.
type BookSide []PriceLevel

// Best returns the top-of-book level. ok is false when the side is empty.
func (s BookSide) Best() (PriceLevel, bool) {
	if len(s) == 0 {
		return PriceLevel{}, false
	}
	return s[0], true
}

// TotalSize sums the sizes of all levels on the side.
func (s BookSide) TotalSize() float64 {
	var total float64
	for _, lvl := range s {
		total += lvl.Size
	}
	return total
}

// Notional sums price*size across all levels on the side.
func (s BookSide) Notional() float64 {
	var total float64
	for _, lvl := range s {
		total += lvl.Price * lvl.Size
	}
	return total
}

// Snapshot is an immutable view of both book sides at an instant. It is
// constructed in full by the feed and then published; nothing mutates it
// afterwards, so concurrent readers need no locking.
type Snapshot struct {
	Asks         BookSide  `json:"asks"`
	Bids         BookSide  `json:"bids"`
	CapturedAt   time.Time `json:"captured_at"`
	ProcessingMs float64   `json:"processing_ms"`
}

// BestAsk returns the lowest ask price, or 0 when the ask side is empty.
func (s *Snapshot) BestAsk() float64 {
	if lvl, ok := s.Asks.Best(); ok {
		return lvl.Price
	}
	return 0
}

// BestBid returns the highest bid price, or 0 when the bid side is empty.
func (s *Snapshot) BestBid() float64 {
	if lvl, ok := s.Bids.Best(); ok {
		return lvl.Price
	}
	return 0
}

// MidPrice returns (best ask + best bid) / 2, or 0 when either side is empty.
func (s *Snapshot) MidPrice() float64 {
	if s.Empty() {
		return 0
	}
	return (s.BestAsk() + s.BestBid()) / 2
}

// Empty reports whether either side of the book has no levels.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Asks) == 0 || len(s.Bids) == 0
}

// DepthNotionalWithin returns the combined resting notional within the given
// fractional band of the mid price: asks priced at or below mid*(1+band) plus
// bids priced at or above mid*(1-band).
func (s *Snapshot) DepthNotionalWithin(band float64) float64 {
	mid := s.MidPrice()
	if mid <= 0 {
		return 0
	}
	upper := mid * (1 + band)
	lower := mid * (1 - band)

	var total float64
	for _, lvl := range s.Asks {
		if lvl.Price > upper {
			break
		}
		total += lvl.Price * lvl.Size
	}
	for _, lvl := range s.Bids {
		if lvl.Price < lower {
			break
		}
		total += lvl.Price * lvl.Size
	}
	return total
}

// BookSummary is the rounded, display-oriented view of the current book.
type BookSummary struct {
	Status        string  `json:"status"`
	BestAsk       float64 `json:"best_ask"`
	BestBid       float64 `json:"best_bid"`
	MidPrice      float64 `json:"mid_price"`
	Spread        float64 `json:"spread"`
	SpreadPct     float64 `json:"spread_pct"`
	AskDepth      float64 `json:"ask_depth"`
	BidDepth      float64 `json:"bid_depth"`
	BookImbalance float64 `json:"book_imbalance"`
	LastLatencyMs float64 `json:"last_latency_ms"`
}
