package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/marketplace-auction/internal/model"
)

const bidColumns = `id, listing_id, bidder_id, amount, placed_at`

// BidRepo encapsulates database operations for bids.  Bids are only ever
// inserted; there is no update or delete.
type BidRepo struct {
	db *sql.DB
}

// NewBidRepo constructs a BidRepo given a DB handle.
func NewBidRepo(db *sql.DB) *BidRepo { return &BidRepo{db: db} }

// BetterBid reports whether a beats b for the win: higher amount first,
// then earlier timestamp, then lower id.
func BetterBid(a, b model.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func scanBid(s rowScanner) (model.Bid, error) {
	var b model.Bid
	if err := s.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.Amount, &b.Timestamp); err != nil {
		return model.Bid{}, err
	}
	b.Timestamp = b.Timestamp.UTC()
	return b, nil
}

func collectBids(rows *sql.Rows) ([]model.Bid, error) {
	defer rows.Close()
	out := make([]model.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertTx appends b and sets its ID.
func (r *BidRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *model.Bid) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bids (listing_id, bidder_id, amount, placed_at) VALUES (?,?,?,?)`,
		b.ListingID, b.BidderID, b.Amount, b.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// LatestTx returns the most recent bid of a listing.
func (r *BidRepo) LatestTx(ctx context.Context, tx *sql.Tx, listingID uint64) (model.Bid, bool, error) {
	return oneBid(tx.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE listing_id = ? ORDER BY placed_at DESC, id DESC LIMIT 1`,
		listingID))
}

// WinningTx returns the winning bid of a listing as ordered by BetterBid.
func (r *BidRepo) WinningTx(ctx context.Context, tx *sql.Tx, listingID uint64) (model.Bid, bool, error) {
	return oneBid(tx.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE listing_id = ? ORDER BY amount DESC, placed_at ASC, id ASC LIMIT 1`,
		listingID))
}

func oneBid(row *sql.Row) (model.Bid, bool, error) {
	b, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, false, nil
	}
	if err != nil {
		return model.Bid{}, false, err
	}
	return b, true, nil
}

// ByListing returns the bids of a listing, newest first.
func (r *BidRepo) ByListing(ctx context.Context, listingID uint64) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE listing_id = ? ORDER BY placed_at DESC, id DESC`, listingID)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

// ByBidder returns the bids of a user, newest first.
func (r *BidRepo) ByBidder(ctx context.Context, bidderID uint64) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE bidder_id = ? ORDER BY placed_at DESC, id DESC`, bidderID)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}
