package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

// MemoryStore keeps listings, bids and transactions in process memory.  Each
// listing has its own mutex standing in for the row lock, and the writes of a
// locked section are staged and applied only when the section succeeds, so a
// failed mutation leaves nothing behind.  It backs the engine in tests and in
// single-process development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[uint64]model.Listing
	bids     map[uint64][]model.Bid // listing id -> bids in acceptance order
	txns     map[uint64]model.Transaction
	nextID   struct{ listing, bid, txn uint64 }

	locks sync.Map // listing id -> *sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[uint64]model.Listing),
		bids:     make(map[uint64][]model.Bid),
		txns:     make(map[uint64]model.Transaction),
	}
}

var (
	_ market.Store  = (*MemoryStore)(nil)
	_ market.Reader = (*MemoryStore)(nil)
)

func (s *MemoryStore) lockFor(id uint64) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// CreateListing stores l and assigns its ID.
func (s *MemoryStore) CreateListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID.listing++
	l.ID = s.nextID.listing
	s.listings[l.ID] = cloneListing(*l)
	return nil
}

// WithListingLock serialises fn with every other locked section of the same
// listing.
func (s *MemoryStore) WithListingLock(ctx context.Context, listingID uint64, fn func(tx market.LockedTx, l *model.Listing) error) error {
	lk := s.lockFor(listingID)
	lk.Lock()
	defer lk.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	cur, ok := s.listings[listingID]
	s.mu.RUnlock()
	if !ok {
		return market.ErrNotFound
	}
	l := cloneListing(cur)
	tx := &memTx{store: s, listingID: listingID, txStatus: map[uint64]model.TransactionStatus{}}
	if err := fn(tx, &l); err != nil {
		return err
	}
	tx.commit()
	for _, h := range tx.hooks {
		h()
	}
	return nil
}

// GetTransaction loads a committed transaction.
func (s *MemoryStore) GetTransaction(_ context.Context, id uint64) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return model.Transaction{}, market.ErrTransactionNotFound
	}
	return t, nil
}

// GetListing loads a listing by id.
func (s *MemoryStore) GetListing(_ context.Context, id uint64) (model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return model.Listing{}, market.ErrNotFound
	}
	return cloneListing(l), nil
}

// SearchListings returns active listings matching f, newest first.
func (s *MemoryStore) SearchListings(_ context.Context, f model.ListingFilter) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Listing, 0)
	for _, l := range s.listings {
		if l.Status != model.StatusActive {
			continue
		}
		if f.Category != "" && l.Category != f.Category {
			continue
		}
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		price := EffectivePrice(l)
		if f.MinPrice.Valid && price.LessThan(f.MinPrice.Decimal) {
			continue
		}
		if f.MaxPrice.Valid && price.GreaterThan(f.MaxPrice.Decimal) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Title), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		out = append(out, cloneListing(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListingsBySeller returns every listing of a seller, newest first.
func (s *MemoryStore) ListingsBySeller(_ context.Context, sellerID uint64) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Listing, 0)
	for _, l := range s.listings {
		if l.SellerID == sellerID {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// BidsForListing returns the bids of a listing, newest first.
func (s *MemoryStore) BidsForListing(_ context.Context, listingID uint64) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.listings[listingID]; !ok {
		return nil, market.ErrNotFound
	}
	src := s.bids[listingID]
	out := make([]model.Bid, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

// BidsByBidder returns the bids placed by a user, newest first.
func (s *MemoryStore) BidsByBidder(_ context.Context, bidderID uint64) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bid, 0)
	for _, bs := range s.bids {
		for _, b := range bs {
			if b.BidderID == bidderID {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// TransactionsByBuyer returns the purchases of a user, newest first.
func (s *MemoryStore) TransactionsByBuyer(_ context.Context, buyerID uint64) ([]model.Transaction, error) {
	return s.filterTxns(func(t model.Transaction) bool { return t.BuyerID == buyerID }), nil
}

// TransactionsBySeller returns the sales of a user, newest first.
func (s *MemoryStore) TransactionsBySeller(_ context.Context, sellerID uint64) ([]model.Transaction, error) {
	return s.filterTxns(func(t model.Transaction) bool { return t.SellerID == sellerID }), nil
}

// TransactionsForListing returns every transaction of a listing in creation
// order.
func (s *MemoryStore) TransactionsForListing(listingID uint64) []model.Transaction {
	out := s.filterTxns(func(t model.Transaction) bool { return t.ListingID == listingID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) filterTxns(keep func(model.Transaction) bool) []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Transaction, 0)
	for _, t := range s.txns {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// memTx stages the writes of one locked section.
type memTx struct {
	store     *MemoryStore
	listingID uint64

	listing  *model.Listing
	bids     []model.Bid
	txns     []model.Transaction
	txStatus map[uint64]model.TransactionStatus
	hooks    []func()
}

func (t *memTx) AfterCommit(fn func()) { t.hooks = append(t.hooks, fn) }

func (t *memTx) SaveListing(_ context.Context, l *model.Listing) error {
	c := cloneListing(*l)
	t.listing = &c
	return nil
}

func (t *memTx) AppendBid(_ context.Context, b *model.Bid) error {
	t.store.mu.Lock()
	t.store.nextID.bid++
	b.ID = t.store.nextID.bid
	t.store.mu.Unlock()
	t.bids = append(t.bids, *b)
	return nil
}

func (t *memTx) allBids() []model.Bid {
	t.store.mu.RLock()
	committed := t.store.bids[t.listingID]
	out := make([]model.Bid, 0, len(committed)+len(t.bids))
	out = append(out, committed...)
	t.store.mu.RUnlock()
	return append(out, t.bids...)
}

func (t *memTx) LatestBid(_ context.Context, listingID uint64) (model.Bid, bool, error) {
	all := t.allBids()
	if listingID != t.listingID || len(all) == 0 {
		return model.Bid{}, false, nil
	}
	return all[len(all)-1], true, nil
}

func (t *memTx) WinningBid(_ context.Context, listingID uint64) (model.Bid, bool, error) {
	if listingID != t.listingID {
		return model.Bid{}, false, nil
	}
	var (
		best  model.Bid
		found bool
	)
	for _, b := range t.allBids() {
		if !found || BetterBid(b, best) {
			best, found = b, true
		}
	}
	return best, found, nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn *model.Transaction) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, existing := range t.store.txns {
		if existing.ListingID == txn.ListingID && t.effectiveStatus(existing) != model.TxDisputed {
			return market.ErrAlreadySettled
		}
	}
	for _, staged := range t.txns {
		if staged.ListingID == txn.ListingID && staged.Status != model.TxDisputed {
			return market.ErrAlreadySettled
		}
	}
	t.store.nextID.txn++
	txn.ID = t.store.nextID.txn
	t.txns = append(t.txns, *txn)
	return nil
}

func (t *memTx) effectiveStatus(txn model.Transaction) model.TransactionStatus {
	if st, ok := t.txStatus[txn.ID]; ok {
		return st
	}
	return txn.Status
}

func (t *memTx) TransactionByID(_ context.Context, id uint64) (model.Transaction, error) {
	for _, staged := range t.txns {
		if staged.ID == id {
			staged.Status = t.effectiveStatus(staged)
			return staged, nil
		}
	}
	t.store.mu.RLock()
	txn, ok := t.store.txns[id]
	t.store.mu.RUnlock()
	if !ok || txn.ListingID != t.listingID {
		return model.Transaction{}, market.ErrTransactionNotFound
	}
	txn.Status = t.effectiveStatus(txn)
	return txn, nil
}

func (t *memTx) UpdateTransactionStatus(ctx context.Context, id uint64, status model.TransactionStatus) error {
	if _, err := t.TransactionByID(ctx, id); err != nil {
		return err
	}
	t.txStatus[id] = status
	return nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.listing != nil {
		s.listings[t.listingID] = *t.listing
	}
	if len(t.bids) > 0 {
		s.bids[t.listingID] = append(s.bids[t.listingID], t.bids...)
	}
	for _, txn := range t.txns {
		s.txns[txn.ID] = txn
	}
	for id, st := range t.txStatus {
		if txn, ok := s.txns[id]; ok {
			txn.Status = st
			s.txns[id] = txn
		}
	}
}

func cloneListing(l model.Listing) model.Listing {
	if l.EndTime != nil {
		end := *l.EndTime
		l.EndTime = &end
	}
	return l
}
