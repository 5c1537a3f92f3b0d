package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors.  They describe a request the caller may not make in the
// listing's current state and are returned unchanged to the caller; the
// engine never retries them.
var (
	ErrNotFound            = errors.New("listing not found")
	ErrNotAuction          = errors.New("listing is not an auction")
	ErrNotDirectListing    = errors.New("listing is not a direct sale")
	ErrAuctionInactive     = errors.New("auction is not active")
	ErrAuctionExpired      = errors.New("auction has ended")
	ErrBidTooLow           = errors.New("bid too low")
	ErrOutOfStock          = errors.New("out of stock")
	ErrListingInactive     = errors.New("listing is not available")
	ErrAlreadyClosed       = errors.New("auction already closed")
	ErrForbidden           = errors.New("forbidden")
	ErrNotApproved         = errors.New("seller account not approved")
	ErrInvalidListing      = errors.New("invalid listing")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadySettled      = errors.New("listing already settled")
	ErrTransactionNotFound = errors.New("transaction not found")
)

var validationErrors = []error{
	ErrNotFound, ErrNotAuction, ErrNotDirectListing, ErrAuctionInactive,
	ErrAuctionExpired, ErrBidTooLow, ErrOutOfStock, ErrListingInactive,
	ErrAlreadyClosed, ErrForbidden, ErrNotApproved, ErrInvalidListing,
	ErrInvalidAmount, ErrInvalidTransition, ErrAlreadySettled,
	ErrTransactionNotFound,
}

// IsValidation reports whether err is one of the caller-facing validation
// errors.  Anything else is an infrastructure failure.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// BidTooLowError carries the amount the rejected bid had to reach.
type BidTooLowError struct {
	MinRequired decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %s", e.MinRequired.StringFixed(2))
}

// Is makes errors.Is(err, ErrBidTooLow) hold.
func (e *BidTooLowError) Is(target error) bool { return target == ErrBidTooLow }

func invalidListing(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidListing, reason)
}
