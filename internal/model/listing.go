package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingType selects how a listing is sold.
type ListingType string

const (
	ListingDirect  ListingType = "direct"  // fixed price, bought instantly
	ListingAuction ListingType = "auction" // timed auction, settled on close
)

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool { return t == ListingDirect || t == ListingAuction }

// ListingStatus is the lifecycle state of a listing.  Only active is
// non-terminal.
type ListingStatus string

const (
	StatusActive ListingStatus = "active"
	StatusSold   ListingStatus = "sold"
	StatusEnded  ListingStatus = "ended"
	StatusBanned ListingStatus = "banned"
)

// Terminal reports whether no further transition may leave s.
func (s ListingStatus) Terminal() bool { return s != StatusActive }

// Listing is a sellable item as stored in the `listings` table.  A listing
// carries exactly one pricing mode: direct listings use Price and Stock,
// auctions use StartBid, MinBidIncrement, CurrentHighestBid and EndTime.
//
// Fields:
//
//	ID                – primary key identifier.
//	SellerID          – user who created the listing.
//	Title             – short headline shown in search results.
//	Description       – free text description.
//	Category          – free text category used for filtering.
//	Type              – direct or auction.
//	Status            – active, sold, ended or banned.
//	Price             – direct sale price (null for auctions).
//	Stock             – units left for direct sale.
//	StartBid          – opening amount of an auction (null for direct).
//	MinBidIncrement   – smallest raise over the current highest bid.
//	CurrentHighestBid – amount of the latest accepted bid, StartBid before any.
//	EndTime           – optional auction deadline (UTC).
//	CreatedAt         – creation timestamp.
//	UpdatedAt         – last update timestamp.
type Listing struct {
	ID                uint64              // listings.id
	SellerID          uint64              // listings.seller_id
	Title             string              // listings.title
	Description       string              // listings.description
	Category          string              // listings.category
	Type              ListingType         // listings.listing_type
	Status            ListingStatus       // listings.status
	Price             decimal.NullDecimal // listings.price (nullable)
	Stock             int                 // listings.stock
	StartBid          decimal.NullDecimal // listings.start_bid (nullable)
	MinBidIncrement   decimal.Decimal     // listings.min_bid_increment
	CurrentHighestBid decimal.Decimal     // listings.current_highest_bid
	EndTime           *time.Time          // listings.end_time (nullable)
	CreatedAt         time.Time           // listings.created_at
	UpdatedAt         time.Time           // listings.updated_at
}

// IsAuction reports whether the listing is sold by auction.
func (l *Listing) IsAuction() bool { return l.Type == ListingAuction }

// IsDirect reports whether the listing is sold at a fixed price.
func (l *Listing) IsDirect() bool { return l.Type == ListingDirect }

// ListingFilter narrows public listing searches.  Zero values disable a
// filter.  MinPrice and MaxPrice match either the direct price or the
// current highest bid of an auction.
type ListingFilter struct {
	Category string
	Type     ListingType
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	Search   string
}
