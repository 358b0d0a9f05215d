package app

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"campus_market/config"
	"campus_market/internal/storage"
	"campus_market/internal/testutil"
	"campus_market/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Meta      json.RawMessage `json:"meta"`
	RequestID string          `json:"request_id"`
}

type harness struct {
	t   *testing.T
	app *App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		JWTExpiration:      time.Hour,
		MaxUploadBytes:     1 << 20,
		DeliveryFeeCampus:  decimal.NewFromInt(15),
		DeliveryFeeCourier: decimal.NewFromInt(50),
		CORSAllowOrigins:   []string{"*"},
		CORSAllowMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		CORSAllowHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
	}
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return &harness{t: t, app: New(cfg, testutil.NewDB(t), store, nil)}
}

func (h *harness) token(u *models.User) string {
	h.t.Helper()
	tok, err := h.app.Tokens.Generate(u)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body any, headers ...string) (int, envelope) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.send(req)
}

func (h *harness) send(req *http.Request) (int, envelope) {
	h.t.Helper()
	resp, err := h.app.Fiber.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestMarketplaceFlow(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB

	// Register and log in.
	code, env := h.do("POST", "/api/auth/register", "", map[string]string{
		"username": "maya", "email": "maya@campus.edu", "password": "secret1", "full_name": "Maya",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	code, _ = h.do("POST", "/api/auth/register", "", map[string]string{
		"username": "maya", "email": "maya@campus.edu", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, env = h.do("POST", "/api/auth/login", "", map[string]string{"email": "maya@campus.edu", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	login := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, env)
	sellerTok := login.Token
	code, _ = h.do("POST", "/api/auth/login", "", map[string]string{"email": "maya@campus.edu", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	admin := testutil.CreateUser(t, db, models.RoleAdmin, false)
	adminTok := h.token(admin)
	buyer := testutil.CreateUser(t, db, models.RoleUser, false)
	buyerTok := h.token(buyer)

	// Unverified sellers cannot list.
	listing := map[string]any{"title": "Graphing calculator", "price": "40.00", "category": "electronics", "quantity": 2}
	code, _ = h.do("POST", "/api/products", sellerTok, listing)
	assert.Equal(t, http.StatusForbidden, code)

	// Verification.
	code, env = h.do("POST", "/api/verification", sellerTok, map[string]string{"business_name": "Maya's Gadgets", "student_id": "S-77"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	ver := decode[models.SellerVerification](t, env)

	code, _ = h.do("GET", "/api/admin/verifications", buyerTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = h.do("POST", "/api/admin/verifications/"+itoa(ver.ID)+"/approve", adminTok, map[string]string{"note": "ok"})
	require.Equal(t, http.StatusOK, code, env.Message)

	// Listing goes through moderation.
	code, env = h.do("POST", "/api/products", sellerTok, listing)
	require.Equal(t, http.StatusCreated, code, env.Message)
	product := decode[models.Product](t, env)
	assert.Equal(t, models.ProductPending, product.Status)

	code, _ = h.do("GET", "/api/products/"+itoa(product.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, env = h.do("POST", "/api/admin/products/"+itoa(product.ID)+"/approve", adminTok, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = h.do("GET", "/api/products/"+itoa(product.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decode[models.Product](t, env).ViewCount)

	code, env = h.do("GET", "/api/search?q=calculator", "", nil)
	require.Equal(t, http.StatusOK, code)
	results := decode[[]struct {
		Product models.Product `json:"product"`
	}](t, env)
	require.Len(t, results, 1)
	assert.Equal(t, product.ID, results[0].Product.ID)

	// Cart and idempotent checkout.
	code, env = h.do("POST", "/api/cart", buyerTok, map[string]any{"product_id": product.ID, "quantity": 3})
	assert.Equal(t, http.StatusConflict, code, env.Message)
	code, env = h.do("POST", "/api/cart", buyerTok, map[string]any{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, code, env.Message)

	checkout := map[string]string{"delivery_method": "campus_delivery"}
	code, env = h.do("POST", "/api/checkout", buyerTok, checkout, "Idempotency-Key", "chk-1")
	require.Equal(t, http.StatusCreated, code, env.Message)
	first := decode[struct {
		Orders []models.Order  `json:"orders"`
		Total  decimal.Decimal `json:"total"`
	}](t, env)
	require.Len(t, first.Orders, 1)
	assert.True(t, decimal.NewFromInt(95).Equal(first.Total), first.Total.String())

	code, env = h.do("POST", "/api/checkout", buyerTok, checkout, "Idempotency-Key", "chk-1")
	require.Equal(t, http.StatusOK, code, env.Message)
	replay := decode[struct {
		Orders   []models.Order `json:"orders"`
		Replayed bool           `json:"replayed"`
	}](t, env)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Orders[0].ID, replay.Orders[0].ID)

	orderPath := "/api/seller/orders/" + itoa(first.Orders[0].ID)
	code, _ = h.do("POST", orderPath+"/approve", buyerTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.do("DELETE", "/api/orders/"+itoa(first.Orders[0].ID), buyerTok, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = h.do("POST", orderPath+"/approve", sellerTok, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = h.do("POST", orderPath+"/approve", sellerTok, nil)
	assert.Equal(t, http.StatusConflict, code)

	var stocked models.Product
	require.NoError(t, db.First(&stocked, product.ID).Error)
	assert.Equal(t, 0, *stocked.Quantity)

	code, env = h.do("GET", "/api/orders?status=approved", buyerTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Order](t, env), 1)

	code, env = h.do("GET", "/api/admin/dashboard", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	dash := decode[struct {
		Revenue decimal.Decimal  `json:"revenue"`
		Orders  map[string]int64 `json:"orders"`
	}](t, env)
	assert.True(t, decimal.NewFromInt(95).Equal(dash.Revenue), dash.Revenue.String())
	assert.Equal(t, int64(1), dash.Orders["approved"])

	code, _ = h.do("DELETE", "/api/orders/"+itoa(first.Orders[0].ID), buyerTok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestFeedLikesOverHTTP(t *testing.T) {
	h := newHarness(t)
	author := testutil.CreateUser(t, h.app.DB, models.RoleUser, false)
	fan := testutil.CreateUser(t, h.app.DB, models.RoleUser, false)

	code, env := h.do("POST", "/api/posts", h.token(author), map[string]string{"content": "Selling notes for CS101"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	post := decode[models.Post](t, env)

	likePath := "/api/posts/" + itoa(post.ID) + "/like"
	for i := 0; i < 2; i++ {
		code, env = h.do("PUT", likePath, h.token(fan), nil)
		require.Equal(t, http.StatusOK, code)
		state := decode[struct {
			Liked     bool `json:"liked"`
			LikeCount int  `json:"like_count"`
		}](t, env)
		assert.True(t, state.Liked)
		assert.Equal(t, 1, state.LikeCount)
	}

	code, env = h.do("GET", "/api/feed?page=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	meta := map[string]any{}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, 1.0, meta["total"])
}

func TestUploadAndServeFile(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.app.DB, models.RoleUser, false)

	upload := func(name string) (int, envelope) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+h.token(user))
		return h.send(req)
	}

	code, _ := upload("notes.pdf")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := upload("photo.png")
	require.Equal(t, http.StatusCreated, code, env.Message)
	file := decode[struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}](t, env)
	assert.Equal(t, "/uploads/"+file.ID, file.URL)

	resp, err := h.app.Fiber.Test(httptest.NewRequest("GET", "/api/files/"+file.ID, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestAuthAndRouting(t *testing.T) {
	h := newHarness(t)

	code, env := h.do("GET", "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
	assert.Equal(t, "No token provided", env.Message)
	assert.NotEmpty(t, env.RequestID)
	code, env = h.do("GET", "/api/cart", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token is invalid", env.Message)

	code, env = h.do("GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)

	code, _ = h.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	staff := testutil.CreateUser(t, h.app.DB, models.RoleStaff, false)
	user := testutil.CreateUser(t, h.app.DB, models.RoleUser, false)
	code, _ = h.do("GET", "/api/admin/staff", h.token(staff), nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.do("PUT", "/api/admin/users/"+itoa(user.ID)+"/role", h.token(staff), map[string]string{"role": "staff"})
	assert.Equal(t, http.StatusForbidden, code)

	resp, err := h.app.Fiber.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "campus_market_http_requests_total")
}

func TestCheckoutWithoutBodyUsesMeetup(t *testing.T) {
	h := newHarness(t)
	seller := testutil.CreateUser(t, h.app.DB, models.RoleUser, true)
	buyer := testutil.CreateUser(t, h.app.DB, models.RoleUser, false)
	product := testutil.CreateProduct(t, h.app.DB, seller.ID, "12.00", testutil.IntPtr(4))

	code, env := h.do("POST", "/api/cart", h.token(buyer), map[string]any{"product_id": product.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, code, env.Message)

	req := httptest.NewRequest("POST", "/api/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+h.token(buyer))
	code, env = h.send(req)
	require.Equal(t, http.StatusCreated, code, env.Message)
	result := decode[struct {
		Orders []models.Order `json:"orders"`
	}](t, env)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, models.DeliveryMeetup, result.Orders[0].DeliveryMethod)
	assert.True(t, result.Orders[0].DeliveryFee.IsZero())
}

func TestWishlistPutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB
	seller := testutil.CreateUser(t, db, models.RoleUser, true)
	buyer := testutil.CreateUser(t, db, models.RoleUser, false)
	product := testutil.CreateProduct(t, db, seller.ID, "9.00", nil)
	tok := h.token(buyer)
	path := "/api/wishlist/" + itoa(product.ID)

	code, env := h.do("PUT", path, tok, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	first := decode[models.WishlistItem](t, env)
	code, env = h.do("PUT", path, tok, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, first.ID, decode[models.WishlistItem](t, env).ID)

	var rows int64
	require.NoError(t, db.Model(&models.WishlistItem{}).Where("user_id = ?", buyer.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	code, env = h.do("GET", "/api/wishlist", tok, nil)
	require.Equal(t, http.StatusOK, code)
	items := decode[[]models.WishlistItem](t, env)
	require.Len(t, items, 1)
	assert.Equal(t, product.ID, items[0].Product.ID)

	code, _ = h.do("PUT", "/api/wishlist/9999", tok, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do("DELETE", path, tok, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = h.do("GET", "/api/wishlist", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]models.WishlistItem](t, env))
}

func TestFeaturedSections(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB
	adminTok := h.token(testutil.CreateUser(t, db, models.RoleAdmin, false))
	seller := testutil.CreateUser(t, db, models.RoleUser, true)
	plain := testutil.CreateUser(t, db, models.RoleUser, false)
	live := testutil.CreateProduct(t, db, seller.ID, "20.00", nil)
	pending := testutil.CreateProduct(t, db, seller.ID, "20.00", nil)
	require.NoError(t, db.Model(pending).Update("status", models.ProductPending).Error)

	code, _ := h.do("POST", "/api/admin/featured", adminTok, map[string]string{"title": "Odd", "kind": "banners"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := h.do("POST", "/api/admin/featured", adminTok, map[string]any{"title": "Top picks", "kind": "products", "position": 1})
	require.Equal(t, http.StatusCreated, code, env.Message)
	picks := decode[models.FeaturedSection](t, env)
	code, env = h.do("POST", "/api/admin/featured", adminTok, map[string]any{"title": "Sellers", "kind": "sellers", "position": 2})
	require.Equal(t, http.StatusCreated, code, env.Message)
	sellers := decode[models.FeaturedSection](t, env)

	picksItems := "/api/admin/featured/" + itoa(picks.ID) + "/items"
	sellerItems := "/api/admin/featured/" + itoa(sellers.ID) + "/items"

	code, _ = h.do("POST", picksItems, adminTok, map[string]any{"product_id": pending.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.do("POST", picksItems, adminTok, map[string]any{"seller_id": seller.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = h.do("POST", picksItems, adminTok, map[string]any{"product_id": live.ID})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, _ = h.do("POST", sellerItems, adminTok, map[string]any{"seller_id": plain.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = h.do("POST", sellerItems, adminTok, map[string]any{"seller_id": seller.ID})
	require.Equal(t, http.StatusCreated, code, env.Message)

	featured := func() []models.FeaturedSection {
		t.Helper()
		code, env := h.do("GET", "/api/featured", "", nil)
		require.Equal(t, http.StatusOK, code)
		sections := decode[[]models.FeaturedSection](t, env)
		require.Len(t, sections, 2)
		return sections
	}

	sections := featured()
	assert.Equal(t, picks.ID, sections[0].ID)
	require.Len(t, sections[0].Items, 1)
	require.NotNil(t, sections[0].Items[0].Product)
	assert.Equal(t, live.ID, sections[0].Items[0].Product.ID)
	require.Len(t, sections[1].Items, 1)
	require.NotNil(t, sections[1].Items[0].Seller)
	assert.Equal(t, seller.ID, sections[1].Items[0].Seller.ID)

	code, env = h.do("POST", "/api/admin/products/"+itoa(live.ID)+"/reject", adminTok, map[string]string{"reason": "reported"})
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, db.Model(seller).Update("is_verified_seller", false).Error)

	sections = featured()
	assert.Empty(t, sections[0].Items)
	assert.Empty(t, sections[1].Items)

	// The back office still sees the stored entries.
	code, env = h.do("GET", "/api/admin/featured", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	all := decode[[]models.FeaturedSection](t, env)
	require.Len(t, all, 2)
	assert.Len(t, all[0].Items, 1)
}

func TestDemotedStaffLosesBackOfficeAccess(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB
	adminTok := h.token(testutil.CreateUser(t, db, models.RoleAdmin, false))
	staff := testutil.CreateUser(t, db, models.RoleStaff, false)
	staffTok := h.token(staff)
	seller := testutil.CreateUser(t, db, models.RoleUser, true)
	product := testutil.CreateProduct(t, db, seller.ID, "5.00", nil)

	code, _ := h.do("GET", "/api/admin/staff", staffTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := h.do("PUT", "/api/admin/users/"+itoa(staff.ID)+"/role", adminTok, map[string]string{"role": "user"})
	require.Equal(t, http.StatusOK, code, env.Message)

	// The old token still carries role=staff.
	code, _ = h.do("GET", "/api/admin/staff", staffTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.do("DELETE", "/api/products/"+itoa(product.ID), staffTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	require.NoError(t, db.Delete(&models.User{}, staff.ID).Error)
	code, _ = h.do("GET", "/api/admin/staff", staffTok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
