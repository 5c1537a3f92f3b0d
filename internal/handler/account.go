package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/middleware"
)

// AccountHandler serves the caller's own marketplace history and disputes.
type AccountHandler struct {
	Engine *market.Engine
	Reader market.Reader
	Users  Accounts
	Log    *zap.Logger
}

func NewAccountHandler(engine *market.Engine, reader market.Reader, users Accounts, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{Engine: engine, Reader: reader, Users: users, Log: log}
}

// MyListings handles GET /v1/me/listings.
func (h *AccountHandler) MyListings(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	ls, err := h.Reader.ListingsBySeller(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	for i := range ls {
		ls[i] = h.Engine.View(ls[i])
	}
	return c.JSON(http.StatusOK, toListingResps(ls))
}

// MyBids handles GET /v1/me/bids.
func (h *AccountHandler) MyBids(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	bs, err := h.Reader.BidsByBidder(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBidResps(bs))
}

// MyOrders handles GET /v1/me/orders: transactions where the caller bought.
func (h *AccountHandler) MyOrders(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	ts, err := h.Reader.TransactionsByBuyer(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTransactionResps(ts))
}

// MySales handles GET /v1/me/sales.
func (h *AccountHandler) MySales(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	ts, err := h.Reader.TransactionsBySeller(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTransactionResps(ts))
}

// Dispute handles POST /v1/transactions/:id/dispute.
func (h *AccountHandler) Dispute(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid transaction id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	who, err := identity(ctx, c, h.Users)
	if err != nil {
		return authFailure(c, h.Log, err)
	}
	t, err := h.Engine.DisputeTransaction(ctx, id, who)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTransactionResp(t))
}
