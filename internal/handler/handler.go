package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/middleware"
	"github.com/iliyamo/marketplace-auction/internal/model"
	"github.com/iliyamo/marketplace-auction/internal/repository"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// Accounts is the user directory used by the handlers.  Both
// repository.UserRepo and repository.MemoryUserRepo satisfy it.
type Accounts interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Approve(ctx context.Context, id uint64) (model.User, error)
}

// Sessions stores hashed refresh tokens.
type Sessions interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

var errUnauthenticated = errors.New("unauthenticated")

// identity loads the caller behind the JWT.  Role and approval come from the
// user record so that an approval takes effect without a new token.
func identity(ctx context.Context, c echo.Context, users Accounts) (model.Identity, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return model.Identity{}, errUnauthenticated
	}
	u, err := users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.Identity{}, errUnauthenticated
	}
	if err != nil {
		return model.Identity{}, err
	}
	return u.Identity(), nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
}

// authFailure renders an error returned by identity.
func authFailure(c echo.Context, log *zap.Logger, err error) error {
	if errors.Is(err, errUnauthenticated) {
		return unauthorized(c)
	}
	return writeError(c, log, err)
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}
