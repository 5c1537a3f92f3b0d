package market

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/ledger"
	"github.com/iliyamo/marketplace-auction/internal/model"
	"github.com/iliyamo/marketplace-auction/internal/notify"
)

// bidTick keeps bid timestamps strictly increasing per listing when two bids
// land within the same clock reading.
const bidTick = 1000 // nanoseconds

// PlaceBid records a bid of amount by bidder on an auction listing.  The bid
// must reach the current highest bid plus the listing's increment; a bid
// exactly at that threshold is accepted.  Validation, the bid insert and the
// highest-bid update commit together or not at all, and the BidAccepted
// events of one listing reach the notifier in commit order.
func (e *Engine) PlaceBid(ctx context.Context, listingID uint64, bidder model.Identity, amount decimal.Decimal) (model.Bid, error) {
	if !amount.IsPositive() || !ledger.InRange(amount) {
		return model.Bid{}, ErrInvalidAmount
	}
	amount = ledger.Round(amount)

	var (
		bid      model.Bid
		rejected error
	)
	err := e.store.WithListingLock(ctx, listingID, func(tx LockedTx, l *model.Listing) error {
		now := e.clock()
		if err := ValidateForBid(l, now); err != nil {
			if errors.Is(err, ErrAuctionExpired) {
				// the ended status must survive the failed bid
				l.UpdatedAt = now
				if serr := tx.SaveListing(ctx, l); serr != nil {
					return serr
				}
				rejected = err
				tx.AfterCommit(func() {
					e.publish(ctx, notify.NewEvent(notify.AuctionEnded, listingID, now))
				})
				return nil
			}
			return err
		}
		minRequired := ledger.MinNextBid(l.CurrentHighestBid, l.MinBidIncrement)
		if amount.LessThan(minRequired) {
			return &BidTooLowError{MinRequired: minRequired}
		}

		ts := now.Truncate(bidTick)
		last, ok, err := tx.LatestBid(ctx, listingID)
		if err != nil {
			return err
		}
		if ok && !ts.After(last.Timestamp) {
			ts = last.Timestamp.Add(bidTick)
		}
		bid = model.Bid{ListingID: listingID, BidderID: bidder.UserID, Amount: amount, Timestamp: ts}
		if err := tx.AppendBid(ctx, &bid); err != nil {
			return err
		}
		l.CurrentHighestBid = amount
		l.UpdatedAt = now
		if err := tx.SaveListing(ctx, l); err != nil {
			return err
		}
		ev := notify.NewEvent(notify.BidAccepted, listingID, bid.Timestamp).WithAmount(amount)
		ev.BidderID = bidder.UserID
		tx.AfterCommit(func() { e.publish(ctx, ev) })
		return nil
	})
	if err != nil {
		return model.Bid{}, err
	}
	if rejected != nil {
		e.log.Info("auction expired on bid", zap.Uint64("listing_id", listingID))
		return model.Bid{}, rejected
	}

	e.log.Debug("bid accepted",
		zap.Uint64("listing_id", listingID),
		zap.Uint64("bidder_id", bidder.UserID),
		zap.String("amount", amount.StringFixed(2)))
	return bid, nil
}
