package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/market"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps engine errors to HTTP responses.  Order matters only in
// that more specific errors come first.
var errorTable = []errorMapping{
	{market.ErrNotFound, http.StatusNotFound, "not_found"},
	{market.ErrTransactionNotFound, http.StatusNotFound, "not_found"},
	{market.ErrForbidden, http.StatusForbidden, "forbidden"},
	{market.ErrNotApproved, http.StatusForbidden, "not_approved"},
	{market.ErrAlreadyClosed, http.StatusConflict, "already_closed"},
	{market.ErrAlreadySettled, http.StatusConflict, "already_settled"},
	{market.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{market.ErrNotAuction, http.StatusBadRequest, "not_auction"},
	{market.ErrNotDirectListing, http.StatusBadRequest, "not_direct_listing"},
	{market.ErrAuctionInactive, http.StatusBadRequest, "auction_inactive"},
	{market.ErrAuctionExpired, http.StatusBadRequest, "auction_expired"},
	{market.ErrBidTooLow, http.StatusBadRequest, "bid_too_low"},
	{market.ErrOutOfStock, http.StatusBadRequest, "out_of_stock"},
	{market.ErrListingInactive, http.StatusBadRequest, "listing_inactive"},
	{market.ErrInvalidListing, http.StatusBadRequest, "invalid_listing"},
	{market.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
}

// writeError renders err as {"error": code, "message": text}.  Unknown
// errors are logged and reported as an opaque 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	for _, m := range errorTable {
		if !errors.Is(err, m.err) {
			continue
		}
		body := echo.Map{"error": m.code, "message": err.Error()}
		var low *market.BidTooLowError
		if errors.As(err, &low) {
			body["min_required"] = low.MinRequired.StringFixed(2)
		}
		return c.JSON(m.status, body)
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}
