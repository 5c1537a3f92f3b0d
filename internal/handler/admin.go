package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/repository"
)

// AdminHandler serves the ADMIN-only moderation endpoints.
type AdminHandler struct {
	Engine *market.Engine
	Users  Accounts
	Log    *zap.Logger
}

func NewAdminHandler(engine *market.Engine, users Accounts, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Engine: engine, Users: users, Log: log}
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	us, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]userResp, 0, len(us))
	for _, u := range us {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, out)
}

// ApproveUser handles POST /v1/admin/users/:id/approve.
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Users.Approve(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	}
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.Log.Info("user approved", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ConfirmPayment handles POST /v1/admin/transactions/:id/confirm.
func (h *AdminHandler) ConfirmPayment(c echo.Context) error {
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
	t, err := h.Engine.ConfirmPayment(ctx, id, who)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTransactionResp(t))
}

// BanListing handles POST /v1/admin/listings/:id/ban.
func (h *AdminHandler) BanListing(c echo.Context) error {
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
	l, err := h.Engine.BanListing(ctx, id, who)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}
