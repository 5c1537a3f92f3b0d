package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const listingColumns = `id, seller_id, title, description, category, listing_type, status,
	price, stock, start_bid, min_bid_increment, current_highest_bid, end_time, created_at, updated_at`

// ListingRepo encapsulates database operations for listings.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo constructs a ListingRepo given a DB handle.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// EffectivePrice is the amount a listing is filtered by: the fixed price of
// a direct sale or the current highest bid of an auction.
func EffectivePrice(l model.Listing) decimal.Decimal {
	if l.IsDirect() {
		return l.Price.Decimal
	}
	return l.CurrentHighestBid
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(s rowScanner) (model.Listing, error) {
	var (
		l   model.Listing
		typ string
		st  string
		end sql.NullTime
	)
	err := s.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Category, &typ, &st,
		&l.Price, &l.Stock, &l.StartBid, &l.MinBidIncrement, &l.CurrentHighestBid, &end,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return model.Listing{}, err
	}
	l.Type = model.ListingType(typ)
	l.Status = model.ListingStatus(st)
	if end.Valid {
		t := end.Time.UTC()
		l.EndTime = &t
	}
	return l, nil
}

func collectListings(rows *sql.Rows) ([]model.Listing, error) {
	defer rows.Close()
	out := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Create inserts l and sets its ID.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	var end sql.NullTime
	if l.EndTime != nil {
		end = sql.NullTime{Time: l.EndTime.UTC(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (seller_id, title, description, category, listing_type, status,
			price, stock, start_bid, min_bid_increment, current_highest_bid, end_time, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.SellerID, l.Title, l.Description, l.Category, string(l.Type), string(l.Status),
		l.Price, l.Stock, l.StartBid, l.MinBidIncrement, l.CurrentHighestBid, end, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetByID returns a listing or market.ErrNotFound.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	return r.get(ctx, r.db, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
}

// GetForUpdateTx loads a listing and locks its row until tx ends.
func (r *ListingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Listing, error) {
	return r.get(ctx, tx, `SELECT `+listingColumns+` FROM listings WHERE id = ? FOR UPDATE`, id)
}

func (r *ListingRepo) get(ctx context.Context, q queryer, query string, id uint64) (model.Listing, error) {
	l, err := scanListing(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, market.ErrNotFound
	}
	return l, err
}

// UpdateStateTx writes the mutable fields of l.
func (r *ListingRepo) UpdateStateTx(ctx context.Context, tx *sql.Tx, l *model.Listing) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE listings SET status = ?, stock = ?, current_highest_bid = ?, updated_at = ? WHERE id = ?`,
		string(l.Status), l.Stock, l.CurrentHighestBid, l.UpdatedAt, l.ID)
	return err
}

// Search returns active listings matching f, newest first.  Category and
// type match exactly, the price bounds apply to EffectivePrice and Search
// is a substring match on title or description.
func (r *ListingRepo) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	var (
		where = []string{"status = 'active'"}
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Type != "" {
		where = append(where, "listing_type = ?")
		args = append(args, string(f.Type))
	}
	const effective = "(CASE WHEN listing_type = 'direct' THEN price ELSE current_highest_bid END)"
	if f.MinPrice.Valid {
		where = append(where, effective+" >= ?")
		args = append(args, f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		where = append(where, effective+" <= ?")
		args = append(args, f.MaxPrice.Decimal)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE `+strings.Join(where, " AND ")+` ORDER BY id DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

// BySeller returns every listing of a seller regardless of status.
func (r *ListingRepo) BySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE seller_id = ? ORDER BY id DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
