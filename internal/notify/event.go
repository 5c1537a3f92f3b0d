// Package notify fans marketplace events out to live watchers of a listing
// and to the optional message broker.  Delivery is best effort: nothing in
// this package can fail or block the request that produced an event.
package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names the kind of change an Event describes.
type EventType string

const (
	BidAccepted         EventType = "bid_accepted"
	ListingSold         EventType = "listing_sold"
	AuctionWon          EventType = "auction_won"
	AuctionEnded        EventType = "auction_ended"
	ListingBanned       EventType = "listing_banned"
	PaymentConfirmed    EventType = "payment_confirmed"
	TransactionDisputed EventType = "transaction_disputed"
)

// Settlement reports whether t finalises or changes a transaction.
func (t EventType) Settlement() bool {
	switch t {
	case ListingSold, AuctionWon, PaymentConfirmed, TransactionDisputed:
		return true
	}
	return false
}

// Event is the payload pushed to websocket watchers and brokers.
type Event struct {
	ID            string           `json:"id"`
	Type          EventType        `json:"type"`
	ListingID     uint64           `json:"listing_id"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	BidderID      uint64           `json:"bidder_id,omitempty"`
	BuyerID       uint64           `json:"buyer_id,omitempty"`
	TransactionID uint64           `json:"transaction_id,omitempty"`
	Status        string           `json:"status,omitempty"`
	At            time.Time        `json:"at"`
}

// NewEvent stamps a fresh id and time on an event of type t.
func NewEvent(t EventType, listingID uint64, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		ListingID: listingID,
		At:        at.UTC(),
	}
}

// WithAmount returns a copy of e carrying amount.
func (e Event) WithAmount(amount decimal.Decimal) Event {
	a := amount
	e.Amount = &a
	return e
}

// Encode renders e as JSON.
func (e Event) Encode() ([]byte, error) { return json.Marshal(e) }

// DecodeEvent parses a JSON payload produced by Encode.
func DecodeEvent(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
