package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

const transactionColumns = `id, listing_id, buyer_id, seller_id, total_amount, commission_rate,
	commission_amount, net_seller_amount, status, created_at, updated_at`

// TransactionRepo encapsulates database operations for settlement records.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo constructs a TransactionRepo given a DB handle.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

func scanTransaction(s rowScanner) (model.Transaction, error) {
	var (
		t  model.Transaction
		st string
	)
	err := s.Scan(&t.ID, &t.ListingID, &t.BuyerID, &t.SellerID, &t.TotalAmount, &t.CommissionRate,
		&t.CommissionAmount, &t.NetSellerAmount, &st, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Status = model.TransactionStatus(st)
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTx inserts t unless the listing already has a non-disputed
// transaction, in which case it returns market.ErrAlreadySettled.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE listing_id = ? AND status <> 'disputed'`,
		t.ListingID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return market.ErrAlreadySettled
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (listing_id, buyer_id, seller_id, total_amount, commission_rate,
			commission_amount, net_seller_amount, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ListingID, t.BuyerID, t.SellerID, t.TotalAmount, t.CommissionRate,
		t.CommissionAmount, t.NetSellerAmount, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns a transaction or market.ErrTransactionNotFound.
func (r *TransactionRepo) GetByID(ctx context.Context, id uint64) (model.Transaction, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *TransactionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Transaction, error) {
	return r.get(ctx, tx, id)
}

func (r *TransactionRepo) get(ctx context.Context, q queryer, id uint64) (model.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, market.ErrTransactionNotFound
	}
	return t, err
}

// UpdateStatusTx sets the status of a transaction.
func (r *TransactionRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.TransactionStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = ?, updated_at = UTC_TIMESTAMP(6) WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return market.ErrTransactionNotFound
	}
	return nil
}

// ByBuyer returns the purchases of a user, newest first.
func (r *TransactionRepo) ByBuyer(ctx context.Context, buyerID uint64) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE buyer_id = ? ORDER BY id DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// BySeller returns the sales of a user, newest first.
func (r *TransactionRepo) BySeller(ctx context.Context, sellerID uint64) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE seller_id = ? ORDER BY id DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}
