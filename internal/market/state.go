package market

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/marketplace-auction/internal/ledger"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

// MaterializeStatus applies lazy expiry: an active auction whose deadline has
// passed becomes ended.  It reports whether l changed, in which case the
// caller must persist it.  There is no background sweeper, so every path that
// reads a status for a decision goes through here first.
func MaterializeStatus(l *model.Listing, now time.Time) bool {
	if !l.IsAuction() || l.Status != model.StatusActive || l.EndTime == nil {
		return false
	}
	if !now.After(*l.EndTime) {
		return false
	}
	l.Status = model.StatusEnded
	return true
}

// Transition moves l to status to, enforcing that statuses only move forward
// out of active.
func Transition(l *model.Listing, to model.ListingStatus) error {
	if l.Status != model.StatusActive || to == model.StatusActive {
		return ErrInvalidTransition
	}
	switch to {
	case model.StatusSold, model.StatusEnded, model.StatusBanned:
		l.Status = to
		return nil
	}
	return ErrInvalidTransition
}

// ValidateForBid checks that l accepts bids at now.  When the auction has
// expired the listing is moved to ended as a side effect (the caller persists
// it) and ErrAuctionExpired is returned.
func ValidateForBid(l *model.Listing, now time.Time) error {
	if !l.IsAuction() {
		return ErrNotAuction
	}
	if l.Status != model.StatusActive {
		return ErrAuctionInactive
	}
	if MaterializeStatus(l, now) {
		return ErrAuctionExpired
	}
	return nil
}

// ValidateForBuy checks that l can be bought directly.
func ValidateForBuy(l *model.Listing) error {
	if !l.IsDirect() {
		return ErrNotDirectListing
	}
	if l.Status != model.StatusActive {
		return ErrListingInactive
	}
	if l.Stock < 1 {
		return ErrOutOfStock
	}
	return nil
}

// ValidateForClose checks that requester may close the auction l.
func ValidateForClose(l *model.Listing, requester model.Identity) error {
	if requester.UserID != l.SellerID && !requester.IsAdmin() {
		return ErrForbidden
	}
	if !l.IsAuction() {
		return ErrNotAuction
	}
	if l.Status != model.StatusActive {
		return ErrAlreadyClosed
	}
	return nil
}

// ValidateNewListing checks the pricing-mode invariant of a draft and
// normalises the fields belonging to the other mode.
func ValidateNewListing(l *model.Listing, now time.Time) error {
	if l.Title == "" {
		return invalidListing("title is required")
	}
	switch l.Type {
	case model.ListingDirect:
		if !l.Price.Valid || !l.Price.Decimal.IsPositive() {
			return invalidListing("direct listings need a positive price")
		}
		if l.StartBid.Valid {
			return invalidListing("direct listings cannot carry a start bid")
		}
		if !ledger.InRange(l.Price.Decimal) {
			return invalidListing("price is too large")
		}
		if l.Stock < 0 {
			return invalidListing("stock cannot be negative")
		}
		l.MinBidIncrement = decimal.Zero
		l.CurrentHighestBid = decimal.Zero
		l.EndTime = nil
	case model.ListingAuction:
		if l.Price.Valid {
			return invalidListing("auctions cannot carry a direct price")
		}
		if l.StartBid.Valid && l.StartBid.Decimal.IsNegative() {
			return invalidListing("start bid cannot be negative")
		}
		if l.StartBid.Valid && !ledger.InRange(l.StartBid.Decimal) {
			return invalidListing("start bid is too large")
		}
		if !l.MinBidIncrement.IsPositive() {
			return invalidListing("min bid increment must be positive")
		}
		if !ledger.InRange(l.MinBidIncrement) {
			return invalidListing("min bid increment is too large")
		}
		if l.EndTime != nil && !l.EndTime.After(now) {
			return invalidListing("end time must be in the future")
		}
		l.CurrentHighestBid = decimal.Zero
		if l.StartBid.Valid {
			l.CurrentHighestBid = l.StartBid.Decimal
		}
		l.Stock = 0
	default:
		return invalidListing("listing type must be direct or auction")
	}
	return nil
}
