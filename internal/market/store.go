package market

import (
	"context"

	"github.com/iliyamo/marketplace-auction/internal/model"
	"github.com/iliyamo/marketplace-auction/internal/notify"
)

// Store is the persistence boundary of the engine.  WithListingLock is the
// only way to mutate a listing: it loads the listing under an exclusive lock
// held until fn returns, commits when fn returns nil and rolls everything back
// otherwise.  Hooks registered with LockedTx.AfterCommit run after a
// successful commit and before the next locked section of the same listing
// in this process starts, so they observe commits in order.  Implementations return ErrNotFound when the listing is missing
// and ErrTransactionNotFound from GetTransaction / TransactionByID.
type Store interface {
	WithListingLock(ctx context.Context, listingID uint64, fn func(tx LockedTx, l *model.Listing) error) error
	CreateListing(ctx context.Context, l *model.Listing) error
	GetTransaction(ctx context.Context, id uint64) (model.Transaction, error)
}

// LockedTx exposes the writes allowed while a listing is locked.  Every call
// participates in the same database transaction as the lock.
type LockedTx interface {
	// SaveListing persists the mutable fields of l (status, stock,
	// current highest bid).
	SaveListing(ctx context.Context, l *model.Listing) error
	// AppendBid inserts b and fills in its ID.
	AppendBid(ctx context.Context, b *model.Bid) error
	// LatestBid returns the most recently accepted bid of the listing.
	LatestBid(ctx context.Context, listingID uint64) (model.Bid, bool, error)
	// WinningBid returns the bid with the highest amount, ties broken by
	// earliest timestamp then lowest id.
	WinningBid(ctx context.Context, listingID uint64) (model.Bid, bool, error)
	// CreateTransaction inserts t and fills in its ID.  It fails with
	// ErrAlreadySettled if a non-disputed transaction exists for the listing.
	CreateTransaction(ctx context.Context, t *model.Transaction) error
	// TransactionByID loads a transaction of the locked listing.
	TransactionByID(ctx context.Context, id uint64) (model.Transaction, error)
	// UpdateTransactionStatus changes the status of a transaction.
	UpdateTransactionStatus(ctx context.Context, id uint64, status model.TransactionStatus) error
	// AfterCommit registers fn to run once the section has committed.  It
	// is dropped on rollback.
	AfterCommit(fn func())
}

// Reader serves the read-only queries of the HTTP layer.
type Reader interface {
	GetListing(ctx context.Context, id uint64) (model.Listing, error)
	SearchListings(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
	ListingsBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error)
	BidsForListing(ctx context.Context, listingID uint64) ([]model.Bid, error)
	BidsByBidder(ctx context.Context, bidderID uint64) ([]model.Bid, error)
	TransactionsByBuyer(ctx context.Context, buyerID uint64) ([]model.Transaction, error)
	TransactionsBySeller(ctx context.Context, sellerID uint64) ([]model.Transaction, error)
}

// Notifier receives events after the mutation that produced them committed.
// Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev notify.Event)

func (f NotifierFunc) Notify(ctx context.Context, ev notify.Event) { f(ctx, ev) }

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, notify.Event) {}
