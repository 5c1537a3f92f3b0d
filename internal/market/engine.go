// Package market implements the auction and settlement engine: the listing
// state machine, the bid ledger and the settlement of direct purchases and
// closed auctions.  Every read-validate-mutate sequence runs inside
// Store.WithListingLock; notifications are sent only after commit.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/ledger"
	"github.com/iliyamo/marketplace-auction/internal/model"
	"github.com/iliyamo/marketplace-auction/internal/notify"
)

// Engine coordinates listing mutations.  It is safe for concurrent use; all
// serialisation happens in the Store.
type Engine struct {
	store    Store
	notifier Notifier
	rate     decimal.Decimal
	now      func() time.Time
	log      *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithNotifier sets the post-commit event receiver.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithCommissionRate sets the platform commission captured at settlement.
func WithCommissionRate(r decimal.Decimal) Option {
	return func(e *Engine) { e.rate = r }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine builds an engine over store.  It panics on a nil store and
// rejects commission rates outside [0, 1).
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	e := &Engine{
		store:    store,
		notifier: discardNotifier{},
		rate:     ledger.DefaultCommissionRate,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := ledger.ValidateRate(e.rate); err != nil {
		return nil, err
	}
	return e, nil
}

// CommissionRate returns the rate captured by new transactions.
func (e *Engine) CommissionRate() decimal.Decimal { return e.rate }

func (e *Engine) clock() time.Time { return e.now().UTC() }

// CreateListing validates draft and stores it as an active listing owned by
// seller.
func (e *Engine) CreateListing(ctx context.Context, seller model.Identity, draft model.Listing) (model.Listing, error) {
	if !seller.CanSell() {
		return model.Listing{}, ErrForbidden
	}
	if !seller.Approved {
		return model.Listing{}, ErrNotApproved
	}
	now := e.clock()
	l := draft
	l.ID = 0
	l.SellerID = seller.UserID
	l.Status = model.StatusActive
	if err := ValidateNewListing(&l, now); err != nil {
		return model.Listing{}, err
	}
	if l.Price.Valid {
		l.Price.Decimal = ledger.Round(l.Price.Decimal)
	}
	l.CreatedAt, l.UpdatedAt = now, now
	if err := e.store.CreateListing(ctx, &l); err != nil {
		return model.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	e.log.Info("listing created",
		zap.Uint64("listing_id", l.ID),
		zap.Uint64("seller_id", l.SellerID),
		zap.String("type", string(l.Type)))
	return l, nil
}

// BanListing lets an administrator take an active listing off the market.
func (e *Engine) BanListing(ctx context.Context, listingID uint64, admin model.Identity) (model.Listing, error) {
	if !admin.IsAdmin() {
		return model.Listing{}, ErrForbidden
	}
	var out model.Listing
	err := e.store.WithListingLock(ctx, listingID, func(tx LockedTx, l *model.Listing) error {
		if err := Transition(l, model.StatusBanned); err != nil {
			return err
		}
		l.UpdatedAt = e.clock()
		if err := tx.SaveListing(ctx, l); err != nil {
			return err
		}
		out = *l
		ev := notify.NewEvent(notify.ListingBanned, listingID, l.UpdatedAt)
		tx.AfterCommit(func() { e.publish(ctx, ev) })
		return nil
	})
	if err != nil {
		return model.Listing{}, err
	}
	return out, nil
}

// View returns l as callers should see it now: an auction past its
// deadline reads as ended even before a bid attempt persisted that.  Nothing
// is written, so the seller can still close and settle the auction.
func (e *Engine) View(l model.Listing) model.Listing {
	MaterializeStatus(&l, e.clock())
	return l
}

// publish hands ev to the notifier.  It runs from AfterCommit hooks, and a
// panicking notifier is contained so it can never fail a committed mutation.
func (e *Engine) publish(ctx context.Context, ev notify.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("notifier panicked",
				zap.String("event", string(ev.Type)),
				zap.Uint64("listing_id", ev.ListingID),
				zap.Any("panic", r))
		}
	}()
	e.notifier.Notify(context.WithoutCancel(ctx), ev)
}
