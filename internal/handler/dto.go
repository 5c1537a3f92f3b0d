package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/marketplace-auction/internal/model"
)

// Response types.  Money is always rendered with two decimals.

type listingResp struct {
	ID                uint64     `json:"id"`
	SellerID          uint64     `json:"seller_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	ListingType       string     `json:"listing_type"`
	Status            string     `json:"status"`
	Price             *string    `json:"price,omitempty"`
	Stock             *int       `json:"stock,omitempty"`
	StartBid          *string    `json:"start_bid,omitempty"`
	MinBidIncrement   *string    `json:"min_bid_increment,omitempty"`
	CurrentHighestBid *string    `json:"current_highest_bid,omitempty"`
	MinNextBid        *string    `json:"min_next_bid,omitempty"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func money(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}

func toListingResp(l model.Listing) listingResp {
	r := listingResp{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		ListingType: string(l.Type),
		Status:      string(l.Status),
		EndTime:     l.EndTime,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.IsDirect() {
		if l.Price.Valid {
			r.Price = money(l.Price.Decimal)
		}
		stock := l.Stock
		r.Stock = &stock
		return r
	}
	if l.StartBid.Valid {
		r.StartBid = money(l.StartBid.Decimal)
	}
	r.MinBidIncrement = money(l.MinBidIncrement)
	r.CurrentHighestBid = money(l.CurrentHighestBid)
	if l.Status == model.StatusActive {
		r.MinNextBid = money(l.CurrentHighestBid.Add(l.MinBidIncrement))
	}
	return r
}

func toListingResps(ls []model.Listing) []listingResp {
	out := make([]listingResp, 0, len(ls))
	for _, l := range ls {
		out = append(out, toListingResp(l))
	}
	return out
}

type bidResp struct {
	ID        uint64    `json:"id"`
	ListingID uint64    `json:"listing_id"`
	BidderID  uint64    `json:"bidder_id"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func toBidResp(b model.Bid) bidResp {
	return bidResp{
		ID:        b.ID,
		ListingID: b.ListingID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		Timestamp: b.Timestamp,
	}
}

func toBidResps(bs []model.Bid) []bidResp {
	out := make([]bidResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBidResp(b))
	}
	return out
}

type transactionResp struct {
	ID               uint64    `json:"transaction_id"`
	ListingID        uint64    `json:"listing_id"`
	BuyerID          uint64    `json:"buyer_id"`
	SellerID         uint64    `json:"seller_id"`
	TotalAmount      string    `json:"total_amount"`
	CommissionRate   string    `json:"commission_rate"`
	CommissionAmount string    `json:"commission_amount"`
	NetSellerAmount  string    `json:"net_seller_amount"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toTransactionResp(t model.Transaction) transactionResp {
	return transactionResp{
		ID:               t.ID,
		ListingID:        t.ListingID,
		BuyerID:          t.BuyerID,
		SellerID:         t.SellerID,
		TotalAmount:      t.TotalAmount.StringFixed(2),
		CommissionRate:   t.CommissionRate.String(),
		CommissionAmount: t.CommissionAmount.StringFixed(2),
		NetSellerAmount:  t.NetSellerAmount.StringFixed(2),
		Status:           string(t.Status),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func toTransactionResps(ts []model.Transaction) []transactionResp {
	out := make([]transactionResp, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResp(t))
	}
	return out
}

type userResp struct {
	ID         uint64    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		CreatedAt:  u.CreatedAt,
	}
}
