package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

var stamp = time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func listingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "seller_id", "title", "description", "category", "listing_type", "status",
		"price", "stock", "start_bid", "min_bid_increment", "current_highest_bid", "end_time", "created_at", "updated_at"})
}

func auctionRow(rows *sqlmock.Rows, id uint64, highest string) *sqlmock.Rows {
	return rows.AddRow(id, 3, "Camera", "", "photo", "auction", "active",
		nil, 0, "10.00", "2.50", highest, stamp.Add(time.Hour), stamp, stamp)
}

func TestMySQLStore_WithListingLock_Commits(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE id = ? FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(auctionRow(listingRows(), 7, "12.50"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bids")).
		WithArgs(7, 42, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(99, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE listings SET status = ?, stock = ?, current_highest_bid = ?")).
		WithArgs("active", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var hookErr error
	hooked := false
	err := s.WithListingLock(context.Background(), 7, func(tx market.LockedTx, l *model.Listing) error {
		tx.AfterCommit(func() {
			hooked = true
			hookErr = mock.ExpectationsWereMet()
		})
		assert.Equal(t, model.ListingAuction, l.Type)
		assert.False(t, l.Price.Valid)
		assert.Equal(t, "12.50", l.CurrentHighestBid.StringFixed(2))
		require.NotNil(t, l.EndTime)

		b := model.Bid{ListingID: 7, BidderID: 42, Amount: decimal.NewFromInt(15), Timestamp: stamp}
		if err := tx.AppendBid(context.Background(), &b); err != nil {
			return err
		}
		assert.Equal(t, uint64(99), b.ID)
		l.CurrentHighestBid = b.Amount
		return tx.SaveListing(context.Background(), l)
	})
	require.NoError(t, err)
	assert.True(t, hooked)
	assert.NoError(t, hookErr, "hook runs after COMMIT")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_WithListingLock_RollsBack(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(auctionRow(listingRows(), 7, "10.00"))
	mock.ExpectRollback()

	ran := false
	err := s.WithListingLock(context.Background(), 7, func(tx market.LockedTx, _ *model.Listing) error {
		tx.AfterCommit(func() { ran = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_WithListingLock_NotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(8).WillReturnRows(listingRows())
	mock.ExpectRollback()

	called := false
	err := s.WithListingLock(context.Background(), 8, func(market.LockedTx, *model.Listing) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, market.ErrNotFound)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CreateTransactionAlreadySettled(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(auctionRow(listingRows(), 7, "10.00"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions WHERE listing_id = ? AND status <> 'disputed'")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := s.WithListingLock(context.Background(), 7, func(tx market.LockedTx, _ *model.Listing) error {
		txn := model.Transaction{ListingID: 7, Status: model.TxPending}
		return tx.CreateTransaction(context.Background(), &txn)
	})
	assert.ErrorIs(t, err, market.ErrAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CreateTransaction(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(auctionRow(listingRows(), 7, "40.00"))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY amount DESC, placed_at ASC, id ASC LIMIT 1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "bidder_id", "amount", "placed_at"}).
			AddRow(5, 7, 42, "40.00", stamp))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	var txn model.Transaction
	err := s.WithListingLock(context.Background(), 7, func(tx market.LockedTx, l *model.Listing) error {
		win, ok, err := tx.WinningBid(context.Background(), l.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(42), win.BidderID)
		txn = model.Transaction{ListingID: l.ID, BuyerID: win.BidderID, SellerID: l.SellerID, TotalAmount: win.Amount, Status: model.TxPending}
		return tx.CreateTransaction(context.Background(), &txn)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), txn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_TransactionByIDChecksListing(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)

	txnRows := sqlmock.NewRows([]string{"id", "listing_id", "buyer_id", "seller_id", "total_amount", "commission_rate",
		"commission_amount", "net_seller_amount", "status", "created_at", "updated_at"}).
		AddRow(11, 8, 42, 3, "40.00", "0.05", "2.00", "38.00", "pending", stamp, stamp)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(auctionRow(listingRows(), 7, "40.00"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE id = ?")).
		WithArgs(11).
		WillReturnRows(txnRows)
	mock.ExpectRollback()

	err := s.WithListingLock(context.Background(), 7, func(tx market.LockedTx, _ *model.Listing) error {
		_, err := tx.TransactionByID(context.Background(), 11)
		return err
	})
	assert.ErrorIs(t, err, market.ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_BidsForUnknownListing(t *testing.T) {
	db, mock := newMock(t)
	s := NewMySQLStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE id = ?")).WithArgs(5).WillReturnRows(listingRows())

	_, err := s.BidsForListing(context.Background(), 5)
	assert.ErrorIs(t, err, market.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_SearchBuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	r := NewListingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE status = 'active' AND category = ? AND listing_type = ? AND "+
			"(CASE WHEN listing_type = 'direct' THEN price ELSE current_highest_bid END) >= ? AND "+
			"(CASE WHEN listing_type = 'direct' THEN price ELSE current_highest_bid END) <= ? AND "+
			"(title LIKE ? OR description LIKE ?) ORDER BY id DESC")).
		WithArgs("photo", "auction", sqlmock.AnyArg(), sqlmock.AnyArg(), `%50\%%`, `%50\%%`).
		WillReturnRows(auctionRow(listingRows(), 7, "12.00"))

	out, err := r.Search(context.Background(), model.ListingFilter{
		Category: "photo",
		Type:     model.ListingAuction,
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(20)),
		Search:   " 50% ",
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "photo", out[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_CreateDirect(t *testing.T) {
	db, mock := newMock(t)
	r := NewListingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO listings")).
		WithArgs(3, "Desk", "", "office", "direct", "active",
			sqlmock.AnyArg(), 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, stamp, stamp).
		WillReturnResult(sqlmock.NewResult(21, 1))

	l := model.Listing{
		SellerID: 3, Title: "Desk", Category: "office", Type: model.ListingDirect, Status: model.StatusActive,
		Price: decimal.NewNullDecimal(decimal.NewFromInt(80)), Stock: 2, CreatedAt: stamp, UpdatedAt: stamp,
	}
	require.NoError(t, r.Create(context.Background(), &l))
	assert.Equal(t, uint64(21), l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ann' for key 'users.uq_users_username'"})
	_, err := r.Create(context.Background(), NewUser{Username: "ann", Email: "a@x.io", Password: "pw", Role: model.RoleBuyer}, 4)
	assert.ErrorIs(t, err, ErrUsernameExists)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.io' for key 'users.uq_users_email'"})
	_, err = r.Create(context.Background(), NewUser{Username: "bob", Email: "A@x.io", Password: "pw", Role: model.RoleBuyer}, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmailNormalises(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ann@x.io").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "is_approved", "created_at", "updated_at"}).
			AddRow(4, "ann", "ann@x.io", "hash", "SELLER", true, stamp, stamp))
	u, err := r.GetByEmail(context.Background(), "  Ann@X.io")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), u.ID)
	assert.True(t, u.Identity().Approved)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)
	_, err = r.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	r := NewTokenRepo(db)
	cols := []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}
	q := regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 6, "live", time.Now().Add(time.Hour), nil, stamp))
	uid, err := r.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), uid)

	mock.ExpectQuery(q).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, 6, "revoked", time.Now().Add(time.Hour), stamp, stamp))
	_, err = r.ValidateRefresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	mock.ExpectQuery(q).WithArgs("gone").WillReturnRows(sqlmock.NewRows(cols))
	_, err = r.ValidateRefresh(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	assert.NoError(t, mock.ExpectationsWereMet())
}
