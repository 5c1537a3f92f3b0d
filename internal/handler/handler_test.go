package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/marketplace-auction/internal/config"
	"github.com/iliyamo/marketplace-auction/internal/handler"
	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/model"
	"github.com/iliyamo/marketplace-auction/internal/notify"
	"github.com/iliyamo/marketplace-auction/internal/repository"
	"github.com/iliyamo/marketplace-auction/internal/router"
	"github.com/iliyamo/marketplace-auction/internal/utils"
)

const secret = "handler-test-secret"

type testEnv struct {
	e      *echo.Echo
	store  *repository.MemoryStore
	users  *repository.MemoryUserRepo
	tokens *repository.MemoryTokenRepo
	hub    *notify.Hub
	now    time.Time
}

func newTestEnv(t *testing.T, autoApprove bool) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  repository.NewMemoryStore(),
		users:  repository.NewMemoryUserRepo(),
		tokens: repository.NewMemoryTokenRepo(),
		hub:    notify.NewHub(4, 16),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	t.Cleanup(env.hub.Close)

	engine, err := market.NewEngine(env.store,
		market.WithClock(func() time.Time { return env.now }),
		market.WithNotifier(market.NotifierFunc(func(_ context.Context, ev notify.Event) {
			env.hub.Publish(ev.ListingID, ev)
		})),
	)
	require.NoError(t, err)

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	env.e = echo.New()
	router.Register(env.e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, autoApprove, env.users, env.tokens, nil),
		Listings:  handler.NewListingHandler(engine, env.store, env.users, nil),
		Account:   handler.NewAccountHandler(engine, env.store, env.users, nil),
		Admin:     handler.NewAdminHandler(engine, env.users, nil),
		Watch:     handler.NewWatchHandler(engine, env.store, env.hub, nil),
		JWTSecret: secret,
	})
	return env
}

// user registers an account directly and returns it with an access token.
func (env *testEnv) user(t *testing.T, name, role string, approved bool) (model.User, string) {
	t.Helper()
	u, err := env.users.Create(context.Background(), repository.NewUser{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret-" + name,
		Role:     role,
		Approved: approved,
	}, bcrypt.MinCost)
	require.NoError(t, err)
	tok, err := utils.NewAccessToken(secret, u.ID, u.Role, 15)
	require.NoError(t, err)
	return u, tok.Token
}

func (env *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createListing(t *testing.T, token, body string) uint64 {
	t.Helper()
	rec := env.do(http.MethodPost, "/v1/listings", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return id(t, decode(t, rec), "id")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var l []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l), rec.Body.String())
	return l
}

func id(t *testing.T, m map[string]any, key string) uint64 {
	t.Helper()
	v, ok := m[key].(float64)
	require.True(t, ok, "missing %s in %v", key, m)
	return uint64(v)
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode(t, rec)["error"])
}

func TestDirectPurchase(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, buyer := env.user(t, "buyer", model.RoleBuyer, true)
	_, other := env.user(t, "other", model.RoleBuyer, true)

	lid := env.createListing(t, seller, `{"title":"Lamp","category":"home","listing_type":"direct","price":"200","stock":1}`)

	rec := env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/buy", lid), buyer, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	txn := decode(t, rec)
	assert.Equal(t, "200.00", txn["total_amount"])
	assert.Equal(t, "10.00", txn["commission_amount"])
	assert.Equal(t, "190.00", txn["net_seller_amount"])
	assert.Equal(t, "completed", txn["status"])
	assert.NotZero(t, id(t, txn, "transaction_id"))

	rec = env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/buy", lid), other, "")
	assertError(t, rec, http.StatusBadRequest, "listing_inactive")

	rec = env.do(http.MethodGet, fmt.Sprintf("/v1/listings/%d", lid), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "sold", got["status"])
	assert.EqualValues(t, 0, got["stock"])

	orders := decodeList(t, env.do(http.MethodGet, "/v1/me/orders", buyer, ""))
	require.Len(t, orders, 1)
	sales := decodeList(t, env.do(http.MethodGet, "/v1/me/sales", seller, ""))
	require.Len(t, sales, 1)
	assert.Empty(t, decodeList(t, env.do(http.MethodGet, "/v1/me/orders", other, "")))
}

func TestBuyErrors(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, buyer := env.user(t, "buyer", model.RoleBuyer, true)

	auction := env.createListing(t, seller, `{"title":"Clock","listing_type":"auction","start_bid":"10","min_bid_increment":"1"}`)
	empty := env.createListing(t, seller, `{"title":"Nothing","listing_type":"direct","price":"5","stock":0}`)

	assertError(t, env.do(http.MethodPost, "/v1/listings/999/buy", buyer, ""), http.StatusNotFound, "not_found")
	assertError(t, env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/buy", auction), buyer, ""), http.StatusBadRequest, "not_direct_listing")
	assertError(t, env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/buy", empty), buyer, ""), http.StatusBadRequest, "out_of_stock")
	assertError(t, env.do(http.MethodPost, "/v1/listings/abc/buy", buyer, ""), http.StatusBadRequest, "bad_request")
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/buy", empty), "", "").Code)
}

func TestCreateListing_Permissions(t *testing.T) {
	env := newTestEnv(t, false)
	_, buyer := env.user(t, "buyer", model.RoleBuyer, true)
	_, pending := env.user(t, "pending", model.RoleSeller, false)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	body := `{"title":"Lamp","listing_type":"direct","price":"20","stock":3}`

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/v1/listings", "", body).Code)
	assertError(t, env.do(http.MethodPost, "/v1/listings", buyer, body), http.StatusForbidden, "forbidden")
	assertError(t, env.do(http.MethodPost, "/v1/listings", pending, body), http.StatusForbidden, "not_approved")
	assertError(t, env.do(http.MethodPost, "/v1/listings", seller,
		`{"title":"Lamp","listing_type":"direct","price":"20","start_bid":"5"}`), http.StatusBadRequest, "invalid_listing")
	assertError(t, env.do(http.MethodPost, "/v1/listings", seller,
		`{"title":"Vase","listing_type":"auction","min_bid_increment":"1","end_time":"2020-01-01T00:00:00Z"}`), http.StatusBadRequest, "invalid_listing")

	rec := env.do(http.MethodPost, "/v1/listings", seller, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	l := decode(t, rec)
	assert.Equal(t, "20.00", l["price"])
	assert.Equal(t, "active", l["status"])
	assert.Nil(t, l["start_bid"])
}

func TestCreateAuction_DefaultIncrement(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, bidder := env.user(t, "bidder", model.RoleBuyer, true)

	rec := env.do(http.MethodPost, "/v1/listings", seller, `{"title":"Vase","listing_type":"auction","start_bid":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	l := decode(t, rec)
	assert.Equal(t, "1.00", l["min_bid_increment"])
	assert.Equal(t, "11.00", l["min_next_bid"])

	bids := fmt.Sprintf("/v1/listings/%d/bids", id(t, l, "id"))
	assertError(t, env.do(http.MethodPost, bids, bidder, `{"amount":"10.99"}`), http.StatusBadRequest, "bid_too_low")
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, bids, bidder, `{"amount":"11"}`).Code)

	assertError(t, env.do(http.MethodPost, "/v1/listings", seller,
		`{"title":"Vase","listing_type":"auction","min_bid_increment":"0"}`), http.StatusBadRequest, "invalid_listing")
	assertError(t, env.do(http.MethodPost, "/v1/listings", seller,
		`{"title":"Gold","listing_type":"direct","price":"1000000000000"}`), http.StatusBadRequest, "invalid_listing")
}

func TestAuctionBidAndClose(t *testing.T) {
	env := newTestEnv(t, true)
	sellerUser, seller := env.user(t, "seller", model.RoleSeller, true)
	_, rival := env.user(t, "rival", model.RoleSeller, true)
	bidderUser, bidder := env.user(t, "bidder", model.RoleBuyer, true)
	_, admin := env.user(t, "admin", model.RoleAdmin, true)

	lid := env.createListing(t, seller, `{"title":"Watch","listing_type":"auction","start_bid":"100","min_bid_increment":"10"}`)
	bids := fmt.Sprintf("/v1/listings/%d/bids", lid)

	rec := env.do(http.MethodPost, bids, bidder, `{"amount":"109.99"}`)
	assertError(t, rec, http.StatusBadRequest, "bid_too_low")
	assert.Equal(t, "110.00", decode(t, rec)["min_required"])

	rec = env.do(http.MethodPost, bids, bidder, `{"amount":"110"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "110.00", decode(t, rec)["amount"])

	assertError(t, env.do(http.MethodPost, bids, bidder, `{"amount":"-5"}`), http.StatusBadRequest, "invalid_amount")

	history := decodeList(t, env.do(http.MethodGet, bids, "", ""))
	require.Len(t, history, 1)
	assert.EqualValues(t, bidderUser.ID, history[0]["bidder_id"])

	got := decode(t, env.do(http.MethodGet, fmt.Sprintf("/v1/listings/%d", lid), "", ""))
	assert.Equal(t, "110.00", got["current_highest_bid"])
	assert.Equal(t, "120.00", got["min_next_bid"])

	closePath := fmt.Sprintf("/v1/listings/%d/close", lid)
	assertError(t, env.do(http.MethodPost, closePath, bidder, ""), http.StatusForbidden, "forbidden")
	assertError(t, env.do(http.MethodPost, closePath, rival, ""), http.StatusForbidden, "forbidden")

	rec = env.do(http.MethodPost, closePath, seller, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.Equal(t, "sold", res["result"])
	assert.EqualValues(t, bidderUser.ID, res["winner_id"])
	txnID := id(t, res, "transaction_id")
	txn := res["transaction"].(map[string]any)
	assert.Equal(t, "pending", txn["status"])
	assert.Equal(t, "5.50", txn["commission_amount"])
	assert.EqualValues(t, sellerUser.ID, txn["seller_id"])

	assertError(t, env.do(http.MethodPost, closePath, seller, ""), http.StatusConflict, "already_closed")
	assertError(t, env.do(http.MethodPost, bids, bidder, `{"amount":"500"}`), http.StatusBadRequest, "auction_inactive")

	confirm := fmt.Sprintf("/v1/admin/transactions/%d/confirm", txnID)
	rec = env.do(http.MethodPost, confirm, admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode(t, rec)["status"])
	assertError(t, env.do(http.MethodPost, confirm, admin, ""), http.StatusConflict, "invalid_transition")

	dispute := fmt.Sprintf("/v1/transactions/%d/dispute", txnID)
	assertError(t, env.do(http.MethodPost, dispute, rival, ""), http.StatusForbidden, "forbidden")
	rec = env.do(http.MethodPost, dispute, bidder, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "disputed", decode(t, rec)["status"])

	assertError(t, env.do(http.MethodPost, "/v1/transactions/999/dispute", bidder, ""), http.StatusNotFound, "not_found")
}

func TestCloseWithoutBids(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, admin := env.user(t, "admin", model.RoleAdmin, true)

	lid := env.createListing(t, seller, `{"title":"Chair","listing_type":"auction","min_bid_increment":"1"}`)
	direct := env.createListing(t, seller, `{"title":"Desk","listing_type":"direct","price":"1"}`)

	rec := env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/close", lid), admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.Equal(t, "no_winner", res["result"])
	assert.Equal(t, "ended", res["listing"].(map[string]any)["status"])
	assert.Empty(t, env.store.TransactionsForListing(lid))

	assertError(t, env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/close", direct), seller, ""), http.StatusBadRequest, "not_auction")
}

func TestExpiredAuction(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, bidder := env.user(t, "bidder", model.RoleBuyer, true)

	end := env.now.Add(time.Hour).Format(time.RFC3339)
	lid := env.createListing(t, seller, `{"title":"Bike","listing_type":"auction","start_bid":"50","min_bid_increment":"5","end_time":"`+end+`"}`)
	assert.Len(t, decodeList(t, env.do(http.MethodGet, "/v1/listings", "", "")), 1)

	env.now = env.now.Add(2 * time.Hour)

	got := decode(t, env.do(http.MethodGet, fmt.Sprintf("/v1/listings/%d", lid), "", ""))
	assert.Equal(t, "ended", got["status"])
	assert.Nil(t, got["min_next_bid"])
	assert.Empty(t, decodeList(t, env.do(http.MethodGet, "/v1/listings", "", "")))

	stored, err := env.store.GetListing(context.Background(), lid)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, stored.Status, "reads never persist expiry")

	assertError(t, env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/bids", lid), bidder, `{"amount":"100"}`),
		http.StatusBadRequest, "auction_expired")

	stored, err = env.store.GetListing(context.Background(), lid)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnded, stored.Status)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, bidder := env.user(t, "bidder", model.RoleBuyer, true)

	env.createListing(t, seller, `{"title":"Go in Action","description":"paperback","category":"books","listing_type":"direct","price":"50"}`)
	env.createListing(t, seller, `{"title":"Desk lamp","category":"home","listing_type":"direct","price":"200"}`)
	auction := env.createListing(t, seller, `{"title":"Signed novel","category":"books","listing_type":"auction","start_bid":"100","min_bid_increment":"10"}`)
	rec := env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/bids", auction), bidder, `{"amount":"120"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	titles := func(query string) []string {
		rec := env.do(http.MethodGet, "/v1/listings"+query, "", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []string
		for _, l := range decodeList(t, rec) {
			out = append(out, l["title"].(string))
		}
		return out
	}

	assert.Len(t, titles(""), 3)
	assert.ElementsMatch(t, []string{"Go in Action", "Signed novel"}, titles("?category=books"))
	assert.Equal(t, []string{"Signed novel"}, titles("?type=auction"))
	assert.ElementsMatch(t, []string{"Desk lamp", "Signed novel"}, titles("?min_price=100"))
	assert.Equal(t, []string{"Signed novel"}, titles("?min_price=100&max_price=150"))
	assert.Equal(t, []string{"Go in Action"}, titles("?search=paperback"))
	assert.Equal(t, []string{"Desk lamp"}, titles("?search=LAMP"))

	assertError(t, env.do(http.MethodGet, "/v1/listings?type=barter", "", ""), http.StatusBadRequest, "bad_request")
	assertError(t, env.do(http.MethodGet, "/v1/listings?min_price=abc", "", ""), http.StatusBadRequest, "bad_request")
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	pendingUser, pending := env.user(t, "pending", model.RoleSeller, false)
	_, buyer := env.user(t, "buyer", model.RoleBuyer, true)
	_, admin := env.user(t, "admin", model.RoleAdmin, true)

	assertError(t, env.do(http.MethodGet, "/v1/admin/users", buyer, ""), http.StatusForbidden, "forbidden")
	users := decodeList(t, env.do(http.MethodGet, "/v1/admin/users", admin, ""))
	require.Len(t, users, 3)
	assert.Equal(t, false, users[0]["is_approved"])

	body := `{"title":"Rug","listing_type":"direct","price":"80"}`
	assertError(t, env.do(http.MethodPost, "/v1/listings", pending, body), http.StatusForbidden, "not_approved")

	rec := env.do(http.MethodPost, fmt.Sprintf("/v1/admin/users/%d/approve", pendingUser.ID), admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["is_approved"])
	assertError(t, env.do(http.MethodPost, "/v1/admin/users/999/approve", admin, ""), http.StatusNotFound, "not_found")

	// approval applies to the existing token
	lid := env.createListing(t, pending, body)

	ban := fmt.Sprintf("/v1/admin/listings/%d/ban", lid)
	rec = env.do(http.MethodPost, ban, admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "banned", decode(t, rec)["status"])
	assertError(t, env.do(http.MethodPost, ban, admin, ""), http.StatusConflict, "invalid_transition")
	assertError(t, env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/buy", lid), buyer, ""), http.StatusBadRequest, "listing_inactive")
	assertError(t, env.do(http.MethodPost, "/v1/admin/listings/999/ban", admin, ""), http.StatusNotFound, "not_found")
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodPost, "/v1/auth/register", "",
		`{"username":"sam","email":"Sam@Example.com","password":"pw-123456","role":"seller"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode(t, rec)
	user := reg["user"].(map[string]any)
	assert.Equal(t, "sam@example.com", user["email"])
	assert.Equal(t, model.RoleSeller, user["role"])
	assert.Equal(t, false, user["is_approved"])

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/v1/auth/register", "",
		`{"username":"sam2","email":"sam@example.com","password":"x"}`).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/v1/auth/register", "",
		`{"username":"sam","email":"other@example.com","password":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/auth/register", "",
		`{"username":"root","email":"root@example.com","password":"x","role":"ADMIN"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/auth/register", "",
		`{"email":"nouser@example.com","password":"x"}`).Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"sam@example.com","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"nobody@example.com","password":"wrong"}`).Code)

	rec = env.do(http.MethodPost, "/v1/auth/login", "", `{"email":"sam@example.com","password":"pw-123456"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode(t, rec)
	access := login["access"].(map[string]any)["token"].(string)
	refresh := login["refresh"].(map[string]any)["token"].(string)

	rec = env.do(http.MethodGet, "/v1/me", access, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sam", decode(t, rec)["username"])

	rec = env.do(http.MethodPost, "/v1/auth/refresh-access", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode(t, rec)["refresh"].(map[string]any)["token"].(string)
	assert.NotEqual(t, refresh, rotated)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`).Code)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/v1/auth/logout", "", `{"refresh_token":"`+rotated+`"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+rotated+`"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/auth/logout", "", "").Code)
}

func TestLogoutAllSessions(t *testing.T) {
	env := newTestEnv(t, true)
	login := func() (string, string) {
		rec := env.do(http.MethodPost, "/v1/auth/login", "", `{"email":"kim@example.com","password":"pw-kim"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		m := decode(t, rec)
		return m["access"].(map[string]any)["token"].(string), m["refresh"].(map[string]any)["token"].(string)
	}
	rec := env.do(http.MethodPost, "/v1/auth/register", "", `{"username":"kim","email":"kim@example.com","password":"pw-kim"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.RoleBuyer, decode(t, rec)["user"].(map[string]any)["role"])

	access, r1 := login()
	_, r2 := login()
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/v1/auth/logout", access, "").Code)
	for _, r := range []string{r1, r2} {
		assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+r+`"}`).Code)
	}
}

func TestMyListingsAndBids(t *testing.T) {
	env := newTestEnv(t, true)
	_, seller := env.user(t, "seller", model.RoleSeller, true)
	_, bidder := env.user(t, "bidder", model.RoleBuyer, true)

	a := env.createListing(t, seller, `{"title":"A","listing_type":"auction","min_bid_increment":"1"}`)
	env.createListing(t, seller, `{"title":"B","listing_type":"direct","price":"3"}`)
	for _, amt := range []string{"1", "2", "5"} {
		rec := env.do(http.MethodPost, fmt.Sprintf("/v1/listings/%d/bids", a), bidder, `{"amount":"`+amt+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	mine := decodeList(t, env.do(http.MethodGet, "/v1/me/listings", seller, ""))
	require.Len(t, mine, 2)
	assert.Equal(t, "B", mine[0]["title"])
	assert.Empty(t, decodeList(t, env.do(http.MethodGet, "/v1/me/listings", bidder, "")))

	bids := decodeList(t, env.do(http.MethodGet, "/v1/me/bids", bidder, ""))
	require.Len(t, bids, 3)
	assert.Equal(t, "5.00", bids[0]["amount"])
	assert.Equal(t, "1.00", bids[2]["amount"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true)
	rec := env.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
