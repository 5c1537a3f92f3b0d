package market

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/ledger"
	"github.com/iliyamo/marketplace-auction/internal/model"
	"github.com/iliyamo/marketplace-auction/internal/notify"
)

// CloseResult describes the outcome of closing an auction.  When Winner is
// false the auction ended without bids and no transaction exists.
type CloseResult struct {
	Winner      bool
	WinnerID    uint64
	Transaction model.Transaction
	Listing     model.Listing
}

// BuyDirect settles a direct purchase of one unit.  Direct purchases are
// treated as paid immediately, so the transaction is created completed.
// A listing that is not active when the lock is taken is never settled
// again.
func (e *Engine) BuyDirect(ctx context.Context, listingID uint64, buyer model.Identity) (model.Transaction, error) {
	var txn model.Transaction
	err := e.store.WithListingLock(ctx, listingID, func(tx LockedTx, l *model.Listing) error {
		if err := ValidateForBuy(l); err != nil {
			return err
		}
		now := e.clock()
		txn = e.newTransaction(l, buyer.UserID, l.Price.Decimal, model.TxCompleted)
		txn.CreatedAt, txn.UpdatedAt = now, now
		if err := tx.CreateTransaction(ctx, &txn); err != nil {
			return err
		}
		if err := Transition(l, model.StatusSold); err != nil {
			return err
		}
		l.Stock--
		l.UpdatedAt = now
		if err := tx.SaveListing(ctx, l); err != nil {
			return err
		}
		ev := notify.NewEvent(notify.ListingSold, listingID, txn.CreatedAt).WithAmount(txn.TotalAmount)
		ev.BuyerID = buyer.UserID
		ev.TransactionID = txn.ID
		ev.Status = string(txn.Status)
		tx.AfterCommit(func() { e.publish(ctx, ev) })
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}

	e.log.Info("direct purchase settled",
		zap.Uint64("listing_id", listingID),
		zap.Uint64("transaction_id", txn.ID),
		zap.Uint64("buyer_id", buyer.UserID),
		zap.String("total", txn.TotalAmount.StringFixed(2)))
	return txn, nil
}

// CloseAuction ends an auction on behalf of its seller or an administrator.
// The highest bid wins (earliest timestamp on a tie) and produces a pending
// transaction, since the winner pays out of band.  Without bids the listing
// simply ends.
func (e *Engine) CloseAuction(ctx context.Context, listingID uint64, requester model.Identity) (CloseResult, error) {
	var res CloseResult
	err := e.store.WithListingLock(ctx, listingID, func(tx LockedTx, l *model.Listing) error {
		if err := ValidateForClose(l, requester); err != nil {
			return err
		}
		now := e.clock()
		win, ok, err := tx.WinningBid(ctx, listingID)
		if err != nil {
			return err
		}
		if !ok {
			if err := Transition(l, model.StatusEnded); err != nil {
				return err
			}
			l.UpdatedAt = now
			res = CloseResult{Listing: *l}
			if err := tx.SaveListing(ctx, l); err != nil {
				return err
			}
			tx.AfterCommit(func() {
				e.publish(ctx, notify.NewEvent(notify.AuctionEnded, listingID, now))
			})
			return nil
		}
		txn := e.newTransaction(l, win.BidderID, win.Amount, model.TxPending)
		txn.CreatedAt, txn.UpdatedAt = now, now
		if err := tx.CreateTransaction(ctx, &txn); err != nil {
			return err
		}
		if err := Transition(l, model.StatusSold); err != nil {
			return err
		}
		l.UpdatedAt = now
		if err := tx.SaveListing(ctx, l); err != nil {
			return err
		}
		res = CloseResult{Winner: true, WinnerID: win.BidderID, Transaction: txn, Listing: *l}
		ev := notify.NewEvent(notify.AuctionWon, listingID, txn.CreatedAt).WithAmount(txn.TotalAmount)
		ev.BuyerID = win.BidderID
		ev.TransactionID = txn.ID
		ev.Status = string(txn.Status)
		tx.AfterCommit(func() { e.publish(ctx, ev) })
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}

	if !res.Winner {
		e.log.Info("auction ended without bids", zap.Uint64("listing_id", listingID))
		return res, nil
	}
	e.log.Info("auction closed",
		zap.Uint64("listing_id", listingID),
		zap.Uint64("winner_id", res.WinnerID),
		zap.Uint64("transaction_id", res.Transaction.ID),
		zap.String("total", res.Transaction.TotalAmount.StringFixed(2)))
	return res, nil
}

// ConfirmPayment records the external confirmation that the buyer of a
// pending transaction paid.  Only administrators may confirm.
func (e *Engine) ConfirmPayment(ctx context.Context, transactionID uint64, admin model.Identity) (model.Transaction, error) {
	if !admin.IsAdmin() {
		return model.Transaction{}, ErrForbidden
	}
	return e.advanceTransaction(ctx, transactionID, model.TxCompleted, notify.PaymentConfirmed,
		func(model.Transaction) error { return nil })
}

// DisputeTransaction marks a transaction as contested.  The buyer, the seller
// or an administrator may dispute.
func (e *Engine) DisputeTransaction(ctx context.Context, transactionID uint64, requester model.Identity) (model.Transaction, error) {
	return e.advanceTransaction(ctx, transactionID, model.TxDisputed, notify.TransactionDisputed,
		func(t model.Transaction) error {
			if requester.IsAdmin() || requester.UserID == t.BuyerID || requester.UserID == t.SellerID {
				return nil
			}
			return ErrForbidden
		})
}

// advanceTransaction moves a transaction to next under its listing's lock
// and announces the change as typ.
func (e *Engine) advanceTransaction(ctx context.Context, id uint64, next model.TransactionStatus, typ notify.EventType, authorize func(model.Transaction) error) (model.Transaction, error) {
	probe, err := e.store.GetTransaction(ctx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	var out model.Transaction
	err = e.store.WithListingLock(ctx, probe.ListingID, func(tx LockedTx, _ *model.Listing) error {
		t, err := tx.TransactionByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(t); err != nil {
			return err
		}
		if !t.Status.CanBecome(next) {
			return ErrInvalidTransition
		}
		if err := tx.UpdateTransactionStatus(ctx, id, next); err != nil {
			return err
		}
		t.Status = next
		t.UpdatedAt = e.clock()
		out = t
		ev := notify.NewEvent(typ, t.ListingID, t.UpdatedAt).WithAmount(t.TotalAmount)
		ev.BuyerID = t.BuyerID
		ev.TransactionID = t.ID
		ev.Status = string(t.Status)
		tx.AfterCommit(func() { e.publish(ctx, ev) })
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return model.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	e.log.Info("transaction status changed",
		zap.Uint64("transaction_id", out.ID),
		zap.Uint64("listing_id", out.ListingID),
		zap.String("status", string(out.Status)))
	return out, nil
}

func (e *Engine) newTransaction(l *model.Listing, buyerID uint64, total ledger.Amount, status model.TransactionStatus) model.Transaction {
	split := ledger.Commission(total, e.rate)
	return model.Transaction{
		ListingID:        l.ID,
		BuyerID:          buyerID,
		SellerID:         l.SellerID,
		TotalAmount:      split.Total,
		CommissionRate:   split.Rate,
		CommissionAmount: split.Commission,
		NetSellerAmount:  split.Net,
		Status:           status,
	}
}
