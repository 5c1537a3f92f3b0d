package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an accepted offer on an auction listing (`bids` table).  Bids are
// immutable once written and are ordered per listing by Timestamp.
type Bid struct {
	ID        uint64          // bids.id
	ListingID uint64          // bids.listing_id
	BidderID  uint64          // bids.bidder_id
	Amount    decimal.Decimal // bids.amount
	Timestamp time.Time       // bids.placed_at (server assigned, UTC)
}
