package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-auction/internal/handler"
	"github.com/iliyamo/marketplace-auction/internal/middleware"
	"github.com/iliyamo/marketplace-auction/internal/model"
)

var anyRole = []string{model.RoleBuyer, model.RoleSeller, model.RoleAdmin}

// Handlers groups everything Register needs.  Limiter guards mutating
// marketplace routes and Cache fronts the public search; either may be nil.
type Handlers struct {
	Auth     *handler.AuthHandler
	Listings *handler.ListingHandler
	Account  *handler.AccountHandler
	Admin    *handler.AdminHandler
	Watch    *handler.WatchHandler

	JWTSecret string
	Limiter   echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Register mounts every route of the service.
func Register(e *echo.Echo, h Handlers) {
	if h.Limiter == nil {
		h.Limiter = passThrough
	}
	if h.Cache == nil {
		h.Cache = passThrough
	}
	RegisterRoutes(e)
	RegisterAuth(e, h.Auth, h.JWTSecret)
	RegisterMarket(e, h)
	RegisterAccount(e, h.Account, h.JWTSecret)
	RegisterAdmin(e, h.Admin, h.JWTSecret)
	e.GET("/ws/listings/:id", h.Watch.Watch)
}

// RegisterRoutes registers routes that do not require authentication and
// are not versioned.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts session endpoints under /v1/auth and the protected
// /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(anyRole...))
	auth.GET("/me", a.Me)
}

// RegisterMarket mounts listing browse, purchase, bid and close routes.
func RegisterMarket(e *echo.Echo, h Handlers) {
	l := h.Listings
	e.GET("/v1/listings", l.List, h.Cache)
	e.GET("/v1/listings/:id", l.Get)
	e.GET("/v1/listings/:id/bids", l.Bids)

	g := e.Group("/v1/listings",
		middleware.JWTAuth(h.JWTSecret),
		middleware.RequireRole(anyRole...),
		h.Limiter,
	)
	g.POST("/:id/buy", l.Buy)
	g.POST("/:id/bids", l.Bid)

	sellers := middleware.RequireRole(model.RoleSeller, model.RoleAdmin)
	g.POST("", l.Create, sellers)
	g.POST("/:id/close", l.Close, sellers)
}

// RegisterAccount mounts the caller's own history and disputes.
func RegisterAccount(e *echo.Echo, a *handler.AccountHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(anyRole...))
	g.GET("/me/listings", a.MyListings)
	g.GET("/me/bids", a.MyBids)
	g.GET("/me/orders", a.MyOrders)
	g.GET("/me/sales", a.MySales)
	g.POST("/transactions/:id/dispute", a.Dispute)
}

// RegisterAdmin mounts ADMIN-only moderation routes.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/users", a.ListUsers)
	g.POST("/users/:id/approve", a.ApproveUser)
	g.POST("/transactions/:id/confirm", a.ConfirmPayment)
	g.POST("/listings/:id/ban", a.BanListing)
}
