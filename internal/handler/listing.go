package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/ledger"
	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

// ListingHandler serves the marketplace endpoints: listing creation and
// search, purchases, bids and auction close.
type ListingHandler struct {
	Engine *market.Engine
	Reader market.Reader
	Users  Accounts
	Log    *zap.Logger
}

func NewListingHandler(engine *market.Engine, reader market.Reader, users Accounts, log *zap.Logger) *ListingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingHandler{Engine: engine, Reader: reader, Users: users, Log: log}
}

// defaultBidIncrement applies to auctions created without min_bid_increment.
var defaultBidIncrement = decimal.NewFromInt(1)

// Amounts are accepted as JSON numbers or strings.
type createListingReq struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	ListingType     string           `json:"listing_type"`
	Price           *decimal.Decimal `json:"price"`
	Stock           *int             `json:"stock"`
	StartBid        *decimal.Decimal `json:"start_bid"`
	MinBidIncrement *decimal.Decimal `json:"min_bid_increment"`
	EndTime         *time.Time       `json:"end_time"`
}

func (r createListingReq) draft() model.Listing {
	l := model.Listing{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Category:    strings.TrimSpace(r.Category),
		Type:        model.ListingType(strings.ToLower(strings.TrimSpace(r.ListingType))),
		Stock:       1,
	}
	if r.Price != nil {
		l.Price = decimal.NewNullDecimal(ledger.Round(*r.Price))
	}
	if r.Stock != nil {
		l.Stock = *r.Stock
	}
	if r.StartBid != nil {
		l.StartBid = decimal.NewNullDecimal(ledger.Round(*r.StartBid))
	}
	if r.MinBidIncrement != nil {
		l.MinBidIncrement = ledger.Round(*r.MinBidIncrement)
	} else if l.Type == model.ListingAuction {
		l.MinBidIncrement = defaultBidIncrement
	}
	if r.EndTime != nil {
		t := r.EndTime.UTC()
		l.EndTime = &t
	}
	return l
}

type bidReq struct {
	Amount decimal.Decimal `json:"amount"`
}

// Create handles POST /v1/listings.
func (h *ListingHandler) Create(c echo.Context) error {
	var req createListingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	who, err := identity(ctx, c, h.Users)
	if err != nil {
		return authFailure(c, h.Log, err)
	}
	l, err := h.Engine.CreateListing(ctx, who, req.draft())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toListingResp(l))
}

// List handles GET /v1/listings.  Only listings that are active right now
// are returned, so an auction past its deadline drops out even before
// anything persisted its end.
func (h *ListingHandler) List(c echo.Context) error {
	f := model.ListingFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
	}
	if t := strings.ToLower(strings.TrimSpace(c.QueryParam("type"))); t != "" {
		f.Type = model.ListingType(t)
		if !f.Type.Valid() {
			return badRequest(c, "type must be direct or auction")
		}
	}
	var err error
	if f.MinPrice, err = queryAmount(c, "min_price"); err != nil {
		return badRequest(c, "invalid min_price")
	}
	if f.MaxPrice, err = queryAmount(c, "max_price"); err != nil {
		return badRequest(c, "invalid max_price")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	ls, err := h.Reader.SearchListings(ctx, f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]listingResp, 0, len(ls))
	for _, l := range ls {
		l = h.Engine.View(l)
		if l.Status != model.StatusActive {
			continue
		}
		out = append(out, toListingResp(l))
	}
	return c.JSON(http.StatusOK, out)
}

func queryAmount(c echo.Context, name string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ledger.ParseAmount(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Get handles GET /v1/listings/:id.
func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	l, err := h.Reader.GetListing(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toListingResp(h.Engine.View(l)))
}

// Bids handles GET /v1/listings/:id/bids, newest first.
func (h *ListingHandler) Bids(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	bs, err := h.Reader.BidsForListing(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBidResps(bs))
}

// Buy handles POST /v1/listings/:id/buy.
func (h *ListingHandler) Buy(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	who, err := identity(ctx, c, h.Users)
	if err != nil {
		return authFailure(c, h.Log, err)
	}
	txn, err := h.Engine.BuyDirect(ctx, id, who)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toTransactionResp(txn))
}

// Bid handles POST /v1/listings/:id/bids.
func (h *ListingHandler) Bid(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req bidReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	who, err := identity(ctx, c, h.Users)
	if err != nil {
		return authFailure(c, h.Log, err)
	}
	b, err := h.Engine.PlaceBid(ctx, id, who, req.Amount)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toBidResp(b))
}

// Close handles POST /v1/listings/:id/close.
func (h *ListingHandler) Close(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	who, err := identity(ctx, c, h.Users)
	if err != nil {
		return authFailure(c, h.Log, err)
	}
	res, err := h.Engine.CloseAuction(ctx, id, who)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if !res.Winner {
		return c.JSON(http.StatusOK, echo.Map{
			"result":  "no_winner",
			"listing": toListingResp(res.Listing),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"result":         "sold",
		"winner_id":      res.WinnerID,
		"transaction_id": res.Transaction.ID,
		"transaction":    toTransactionResp(res.Transaction),
		"listing":        toListingResp(res.Listing),
	})
}
