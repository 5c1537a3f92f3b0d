package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus tracks payment of a settled listing.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"   // auction won, buyer pays out of band
	TxCompleted TransactionStatus = "completed" // paid
	TxDisputed  TransactionStatus = "disputed"  // contested by a party
)

// CanBecome reports whether a transaction in status s may move to next.
func (s TransactionStatus) CanBecome(next TransactionStatus) bool {
	switch s {
	case TxPending:
		return next == TxCompleted || next == TxDisputed
	case TxCompleted:
		return next == TxDisputed
	}
	return false
}

// Transaction records the settlement of a listing (`transactions` table).
// CommissionRate is captured when the row is created and never looked up
// again; only Status changes afterwards.
//
// Fields:
//
//	ID               – primary key identifier.
//	ListingID        – listing that was settled.
//	BuyerID          – purchaser or auction winner.
//	SellerID         – seller of the listing at settlement time.
//	TotalAmount      – price paid or winning bid.
//	CommissionRate   – platform rate applied to TotalAmount.
//	CommissionAmount – TotalAmount × CommissionRate, rounded to cents.
//	NetSellerAmount  – TotalAmount − CommissionAmount.
//	Status           – pending, completed or disputed.
//	CreatedAt        – settlement timestamp.
//	UpdatedAt        – last status change.
type Transaction struct {
	ID               uint64            // transactions.id
	ListingID        uint64            // transactions.listing_id
	BuyerID          uint64            // transactions.buyer_id
	SellerID         uint64            // transactions.seller_id
	TotalAmount      decimal.Decimal   // transactions.total_amount
	CommissionRate   decimal.Decimal   // transactions.commission_rate
	CommissionAmount decimal.Decimal   // transactions.commission_amount
	NetSellerAmount  decimal.Decimal   // transactions.net_seller_amount
	Status           TransactionStatus // transactions.status
	CreatedAt        time.Time         // transactions.created_at
	UpdatedAt        time.Time         // transactions.updated_at
}
