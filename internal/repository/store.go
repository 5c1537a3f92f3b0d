package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

// MySQLStore implements market.Store and market.Reader on MySQL.  A locked
// section is one database transaction that starts with
// SELECT ... FOR UPDATE on the listing row, so concurrent mutations of the
// same listing queue behind each other in the database.  Within one process
// a per-listing mutex is also held across the commit and the AfterCommit
// hooks, which keeps hook order equal to commit order.
type MySQLStore struct {
	db           *sql.DB
	Listings     *ListingRepo
	Bids         *BidRepo
	Transactions *TransactionRepo

	locks sync.Map // listing id -> *sync.Mutex
}

// NewMySQLStore builds the store and its repositories over db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:           db,
		Listings:     NewListingRepo(db),
		Bids:         NewBidRepo(db),
		Transactions: NewTransactionRepo(db),
	}
}

var (
	_ market.Store  = (*MySQLStore)(nil)
	_ market.Reader = (*MySQLStore)(nil)
)

// WithListingLock runs fn while holding the listing's row lock.
func (s *MySQLStore) WithListingLock(ctx context.Context, listingID uint64, fn func(tx market.LockedTx, l *model.Listing) error) error {
	m, _ := s.locks.LoadOrStore(listingID, &sync.Mutex{})
	lk := m.(*sync.Mutex)
	lk.Lock()
	defer lk.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	l, err := s.Listings.GetForUpdateTx(ctx, tx, listingID)
	if err != nil {
		return err
	}
	ltx := &sqlLockedTx{store: s, tx: tx, listingID: listingID}
	if err := fn(ltx, &l); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	for _, h := range ltx.hooks {
		h()
	}
	return nil
}

func (s *MySQLStore) CreateListing(ctx context.Context, l *model.Listing) error {
	return s.Listings.Create(ctx, l)
}

func (s *MySQLStore) GetTransaction(ctx context.Context, id uint64) (model.Transaction, error) {
	return s.Transactions.GetByID(ctx, id)
}

func (s *MySQLStore) GetListing(ctx context.Context, id uint64) (model.Listing, error) {
	return s.Listings.GetByID(ctx, id)
}

func (s *MySQLStore) SearchListings(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	return s.Listings.Search(ctx, f)
}

func (s *MySQLStore) ListingsBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error) {
	return s.Listings.BySeller(ctx, sellerID)
}

// BidsForListing returns market.ErrNotFound for an unknown listing.
func (s *MySQLStore) BidsForListing(ctx context.Context, listingID uint64) ([]model.Bid, error) {
	if _, err := s.Listings.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.Bids.ByListing(ctx, listingID)
}

func (s *MySQLStore) BidsByBidder(ctx context.Context, bidderID uint64) ([]model.Bid, error) {
	return s.Bids.ByBidder(ctx, bidderID)
}

func (s *MySQLStore) TransactionsByBuyer(ctx context.Context, buyerID uint64) ([]model.Transaction, error) {
	return s.Transactions.ByBuyer(ctx, buyerID)
}

func (s *MySQLStore) TransactionsBySeller(ctx context.Context, sellerID uint64) ([]model.Transaction, error) {
	return s.Transactions.BySeller(ctx, sellerID)
}

// sqlLockedTx binds the repositories to one open transaction.
type sqlLockedTx struct {
	store     *MySQLStore
	tx        *sql.Tx
	listingID uint64
	hooks     []func()
}

func (t *sqlLockedTx) AfterCommit(fn func()) { t.hooks = append(t.hooks, fn) }

func (t *sqlLockedTx) SaveListing(ctx context.Context, l *model.Listing) error {
	return t.store.Listings.UpdateStateTx(ctx, t.tx, l)
}

func (t *sqlLockedTx) AppendBid(ctx context.Context, b *model.Bid) error {
	return t.store.Bids.InsertTx(ctx, t.tx, b)
}

func (t *sqlLockedTx) LatestBid(ctx context.Context, listingID uint64) (model.Bid, bool, error) {
	return t.store.Bids.LatestTx(ctx, t.tx, listingID)
}

func (t *sqlLockedTx) WinningBid(ctx context.Context, listingID uint64) (model.Bid, bool, error) {
	return t.store.Bids.WinningTx(ctx, t.tx, listingID)
}

func (t *sqlLockedTx) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	return t.store.Transactions.CreateTx(ctx, t.tx, txn)
}

func (t *sqlLockedTx) TransactionByID(ctx context.Context, id uint64) (model.Transaction, error) {
	txn, err := t.store.Transactions.GetByIDTx(ctx, t.tx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if txn.ListingID != t.listingID {
		return model.Transaction{}, market.ErrTransactionNotFound
	}
	return txn, nil
}

func (t *sqlLockedTx) UpdateTransactionStatus(ctx context.Context, id uint64, status model.TransactionStatus) error {
	return t.store.Transactions.UpdateStatusTx(ctx, t.tx, id, status)
}
