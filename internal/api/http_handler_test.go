package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/format"
	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/session"
	"marketplace-storefront/internal/state"
	"marketplace-storefront/internal/store"
	"marketplace-storefront/internal/workspace"
)

// MockStore is a mock implementation of store.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionRecord), args.Error(1)
}

func (m *MockStore) SaveSession(ctx context.Context, session *domain.SessionRecord) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) GetPreference(ctx context.Context, sessionID, name string) (json.RawMessage, error) {
	args := m.Called(ctx, sessionID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockStore) PutPreference(ctx context.Context, sessionID, name string, value json.RawMessage) error {
	return m.Called(ctx, sessionID, name, value).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

// testEnv is a storefront wired to a fake marketplace API.
type testEnv struct {
	server   *httptest.Server
	browser  *http.Client
	store    store.Store
	manager  *workspace.Manager
	mu       sync.Mutex
	upstream []string
}

func (e *testEnv) record(r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.upstream = append(e.upstream, r.Method+" "+r.URL.Path)
}

func (e *testEnv) hits(route string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, u := range e.upstream {
		if u == route {
			n++
		}
	}
	return n
}

// capture records values seen by fake upstream handlers.
type capture struct {
	mu     sync.Mutex
	values map[string]string
}

func (c *capture) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value
}

func (c *capture) get(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

type envOption func(*Options)

// setupTestServer starts the fake API described by routes and a storefront
// pointing at it. The returned client keeps cookies like a browser.
func setupTestServer(t *testing.T, st store.Store, routes func(r chi.Router), opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{store: st}

	api := chi.NewRouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env.record(r)
			next.ServeHTTP(w, r)
		})
	})
	if routes != nil {
		routes(api)
	}
	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	env.manager = workspace.NewManager(workspace.Options{
		Client:        client.Config{BaseURL: upstream.URL, LoginPath: "/login", Timeout: 5 * time.Second},
		IdleTTL:       time.Minute,
		MaxWorkspaces: 100,
		Retry:         1,
	}, st, logging.Discard())

	currency, err := format.NewCurrencyFormatter("en-US", "$")
	require.NoError(t, err)
	o := Options{
		Workspaces: env.manager,
		Currency:   currency,
		Images:     format.ImageResolver{UploadPrefix: "https://cdn.test/uploads", Placeholder: "/images/placeholder.png"},
		LoginPath:  "/login",
		Logger:     logging.Discard(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	handler := NewHTTPHandler(o)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.browser = &http.Client{Jar: jar}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := e.browser.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

// sendWithCookie issues a request outside the browser jar, carrying only
// the given session id.
func sendWithCookie(t *testing.T, e *testEnv, method, path, sid string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	require.NoError(t, err)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "storefront_sid", Value: sid})
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

// sessionCookie returns the last session id set by res.
func sessionCookie(res *http.Response) string {
	id := ""
	for _, c := range res.Cookies() {
		if c.Name == "storefront_sid" {
			id = c.Value
		}
	}
	return id
}

func decodeBody(t *testing.T, res *http.Response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(dst))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func loginRoute(role string) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"token":"tok-1","user":{"_id":"u1","name":"Asha","email":"asha@example.com","role":"`+role+`"}}`)
		})
	}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/v1/auth/login", domain.Credentials{Email: "asha@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, res.StatusCode)
}

// --- Session and guards ---

func TestHTTPHandler_AnonymousIsRedirectedToLogin(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), nil)

	res := env.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	var body ErrorResponse
	decodeBody(t, res, &body)
	assert.Equal(t, "/login", body.Redirect)
	assert.Zero(t, env.hits("GET /cart"), "guard runs before any upstream call")
}

func TestHTTPHandler_LoginThenReadCart(t *testing.T) {
	var seen capture
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		loginRoute(domain.RoleCustomer)(r)
		r.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
			seen.set("authorization", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"data":[{"_id":"c1","quantity":2}]}`)
		})
	})

	res := env.do(t, http.MethodPost, "/api/v1/auth/login", domain.Credentials{Email: "asha@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var login struct {
		Data struct {
			IsAuthenticated bool         `json:"isAuthenticated"`
			User            *domain.User `json:"user"`
		} `json:"data"`
		Notices []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"notices"`
	}
	decodeBody(t, res, &login)
	require.NotNil(t, login.Data.User)
	assert.Equal(t, "u1", login.Data.User.ID)
	require.Len(t, login.Notices, 1)
	assert.Equal(t, "success", login.Notices[0].Level)

	res = env.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var cart struct {
		Data   []domain.CartItem `json:"data"`
		Status string            `json:"status"`
	}
	decodeBody(t, res, &cart)
	require.Len(t, cart.Data, 1)
	assert.Equal(t, 2, cart.Data[0].Quantity)
	assert.Equal(t, "success", cart.Status)
	assert.Equal(t, "Bearer tok-1", seen.get("authorization"))
}

func TestHTTPHandler_LoginRejected(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"bad credentials"}`)
		})
	})

	res := env.do(t, http.MethodPost, "/api/v1/auth/login", domain.Credentials{Email: "asha@example.com", Password: "wrongpass"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	var body ErrorResponse
	decodeBody(t, res, &body)
	assert.Equal(t, "Invalid email or password", body.Error)
	assert.Empty(t, body.Redirect)
}

func TestHTTPHandler_LoginValidation(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), nil)

	res := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "not-an-email", "password": "x"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	var body ErrorResponse
	decodeBody(t, res, &body)
	assert.True(t, strings.HasPrefix(body.Error, "Validation failed: "))
	assert.Zero(t, env.hits("POST /auth/login"))
}

func TestHTTPHandler_CustomerCannotOpenDashboard(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), loginRoute(domain.RoleCustomer))
	env.login(t)

	res := env.do(t, http.MethodGet, "/api/v1/dashboard/products", nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestHTTPHandler_VendorCannotListAdminCarts(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), loginRoute(domain.RoleVendor))
	env.login(t)

	res := env.do(t, http.MethodGet, "/api/v1/dashboard/carts", nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestHTTPHandler_UpstreamUnauthorizedEndsSession(t *testing.T) {
	st := store.NewMemoryStore()
	env := setupTestServer(t, st, func(r chi.Router) {
		loginRoute(domain.RoleCustomer)(r)
		r.Get("/cart", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"jwt expired"}`)
		})
	})
	env.login(t)

	res := env.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	var body ErrorResponse
	decodeBody(t, res, &body)
	assert.Equal(t, "/login", body.Redirect)

	var expired bool
	for _, c := range res.Cookies() {
		if c.Name == "storefront_sid" && c.MaxAge < 0 {
			expired = true
		}
	}
	assert.True(t, expired, "session cookie is expired")

	res = env.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var me struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	}
	decodeBody(t, res, &me)
	assert.False(t, me.IsAuthenticated)
}

func TestHTTPHandler_UnknownSessionIDIsNotAdopted(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), nil)
	planted := session.NewID()

	res := sendWithCookie(t, env, http.MethodGet, "/api/v1/browse", planted)
	require.Equal(t, http.StatusOK, res.StatusCode)
	issued := sessionCookie(res)
	require.NotEmpty(t, issued)
	assert.NotEqual(t, planted, issued)
}

func TestHTTPHandler_LoginRotatesSessionID(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), loginRoute(domain.RoleCustomer))

	// An attacker obtains a genuine anonymous id and plants it in the
	// victim's browser.
	res := sendWithCookie(t, env, http.MethodGet, "/api/v1/browse", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	planted := sessionCookie(res)
	require.NotEmpty(t, planted)
	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	env.browser.Jar.SetCookies(u, []*http.Cookie{{Name: "storefront_sid", Value: planted, Path: "/"}})

	res = env.do(t, http.MethodPatch, "/api/v1/browse", map[string]interface{}{"query": "tile"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = env.do(t, http.MethodPost, "/api/v1/auth/login", domain.Credentials{Email: "asha@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	rotated := sessionCookie(res)
	assert.NotEqual(t, planted, rotated)

	res = env.do(t, http.MethodGet, "/api/v1/browse", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var filters state.Filters
	decodeBody(t, res, &filters)
	assert.Equal(t, "tile", filters.Query, "browsing state survives the rotation")

	res = sendWithCookie(t, env, http.MethodGet, "/api/v1/auth/me", planted)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var me struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	}
	decodeBody(t, res, &me)
	assert.False(t, me.IsAuthenticated, "the planted id carries no credentials")
	assert.NotEqual(t, planted, sessionCookie(res))
}

func TestHTTPHandler_LogoutClearsSession(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), loginRoute(domain.RoleCustomer))
	env.login(t)

	res := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodGet, "/api/v1/wishlist", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHTTPHandler_WorkspaceOpenFailure(t *testing.T) {
	st := new(MockStore)
	st.On("GetSession", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()
	env := setupTestServer(t, st, nil)

	res := env.do(t, http.MethodGet, "/api/v1/browse", nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	st.AssertExpectations(t)
}

// --- Mutations ---

func TestHTTPHandler_AddToCartReturnsNotices(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		loginRoute(domain.RoleCustomer)(r)
		r.Get("/cart/count", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"count":3}`)
		})
		r.Post("/cart", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusCreated, `{"data":{"_id":"c9","quantity":1}}`)
		})
	})
	env.login(t)

	res := env.do(t, http.MethodGet, "/api/v1/cart/count", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodPost, "/api/v1/cart", domain.AddToCartInput{ProductID: "p1", Quantity: 1})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var body struct {
		Data    domain.CartItem `json:"data"`
		Notices []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"notices"`
	}
	decodeBody(t, res, &body)
	assert.Equal(t, "c9", body.Data.ID)
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "Added to cart", body.Notices[0].Message)

	res = env.do(t, http.MethodGet, "/api/v1/cart/count", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 2, env.hits("GET /cart/count"), "mutation invalidates the count")
}

func TestHTTPHandler_UpstreamValidationErrorPassesThrough(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		loginRoute(domain.RoleCustomer)(r)
		r.Post("/address", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Postal code is invalid\nfield: postalCode"}`)
		})
	})
	env.login(t)

	res := env.do(t, http.MethodPost, "/api/v1/addresses", domain.AddressInput{
		FullName: "Asha", Phone: "9999999999", Line1: "1 Main St", City: "Pune",
		State: "MH", PostalCode: "000", Country: "IN",
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	var body ErrorResponse
	decodeBody(t, res, &body)
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "Postal code is invalid", body.Notices[0].Message)
}

// --- Browse state and sidebar ---

func TestHTTPHandler_BrowseStateResetsPage(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), nil)

	res := env.do(t, http.MethodPut, "/api/v1/browse/page", PageInput{Page: 3})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var filters state.Filters
	decodeBody(t, res, &filters)
	assert.Equal(t, 3, filters.Page)

	res = env.do(t, http.MethodPatch, "/api/v1/browse", map[string]interface{}{"query": "tile", "sort": "price_asc"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	decodeBody(t, res, &filters)
	assert.Equal(t, 1, filters.Page)
	assert.Equal(t, "tile", filters.Query)
	assert.Equal(t, state.SortPriceAsc, filters.Sort)

	res = env.do(t, http.MethodPatch, "/api/v1/browse", map[string]interface{}{"sort": "cheapest"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodPost, "/api/v1/browse/reset", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	decodeBody(t, res, &filters)
	defaults := state.NewProductList().Snapshot()
	assert.Equal(t, defaults.Page, filters.Page)
	assert.Equal(t, defaults.Sort, filters.Sort)
	assert.Empty(t, filters.Query)
	assert.True(t, filters.MinPrice.IsZero())
	assert.Nil(t, filters.MaxPrice)
}

func TestHTTPHandler_SidebarPersists(t *testing.T) {
	st := store.NewMemoryStore()
	env := setupTestServer(t, st, nil)

	res := env.do(t, http.MethodPost, "/api/v1/ui/sidebar/toggle", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var sidebar SidebarState
	decodeBody(t, res, &sidebar)
	require.NotNil(t, sidebar.Collapsed)
	assert.True(t, *sidebar.Collapsed)

	var sessionID string
	for _, c := range res.Cookies() {
		if c.Name == "storefront_sid" {
			sessionID = c.Value
		}
	}
	require.NotEmpty(t, sessionID)
	raw, err := st.GetPreference(context.Background(), sessionID, state.SidebarKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"collapsed":true}`, string(raw))

	res = env.do(t, http.MethodPut, "/api/v1/ui/sidebar", map[string]bool{"collapsed": false})
	require.Equal(t, http.StatusOK, res.StatusCode)
	decodeBody(t, res, &sidebar)
	assert.False(t, *sidebar.Collapsed)
}

// --- Views ---

func TestHTTPHandler_ProductDetailView(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		r.Get("/product/p1", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{
				"data": {"_id":"p1","title":"Oak Floor Tile","price":1299,"mrp":1499,"inStock":true,
					"category":"c2","images":["a.jpg","https://img.test/b.jpg"],
					"attributes":"[{\"name\":\"Finish\",\"value\":\"Matte\"}]"},
				"parentcategory": {"_id":"c1","name":"Tiles"},
				"childcategory": {"_id":"c2","name":"Floor","parentId":"c1"}
			}`)
		})
		r.Get("/category", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `[{"_id":"c1","name":"Tiles"},{"_id":"c2","name":"Floor","parentId":"c1"}]`)
		})
	})

	res := env.do(t, http.MethodGet, "/api/v1/products/p1", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var view ProductDetailView
	decodeBody(t, res, &view)

	assert.Equal(t, "$1,299", view.Price)
	assert.Equal(t, "$1,499", view.MRP)
	assert.Equal(t, []string{"https://cdn.test/uploads/a.jpg", "https://img.test/b.jpg"}, view.Images)
	assert.Equal(t, "https://cdn.test/uploads/a.jpg", view.Image)
	assert.Equal(t, []domain.Attribute{{Name: "Finish", Value: "Matte"}}, view.Attributes)
	require.Len(t, view.Breadcrumb, 2)
	assert.Equal(t, "c1", view.Breadcrumb[0].ID)
	assert.Equal(t, "c2", view.Breadcrumb[1].ID)
}

func TestHTTPHandler_HomeRendersSectionsIndependently(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		r.Get("/banner", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":[
				{"_id":"b2","title":"Second","image":"two.jpg","position":2,"isActive":true},
				{"_id":"b0","title":"Hidden","image":"x.jpg","position":0,"isActive":false},
				{"_id":"b1","title":"First","image":"one.jpg","position":1,"isActive":true}]}`)
		})
		r.Get("/category", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `[{"_id":"c1","name":"Tiles"},{"_id":"c2","name":"Floor","parentId":"c1"},{"_id":"c3","name":"Paint"}]`)
		})
		r.Get("/product", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"not found"}`)
		})
		r.Get("/brand", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `[{"_id":"v1","name":"Acme","logo":"acme.png"}]`)
		})
	})

	res := env.do(t, http.MethodGet, "/api/v1/home", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var body struct {
		Sections []struct {
			Kind  string          `json:"kind"`
			Items json.RawMessage `json:"items"`
			Error string          `json:"error"`
		} `json:"sections"`
	}
	decodeBody(t, res, &body)
	require.Len(t, body.Sections, 5)

	var slides []BannerSlide
	require.NoError(t, json.Unmarshal(body.Sections[0].Items, &slides))
	require.Len(t, slides, 2)
	assert.Equal(t, "b1", slides[0].ID)
	assert.Equal(t, "https://cdn.test/uploads/one.jpg", slides[0].Image)

	var tiles []CategoryTile
	require.NoError(t, json.Unmarshal(body.Sections[1].Items, &tiles))
	require.Len(t, tiles, 2)
	assert.Equal(t, 1, tiles[0].ChildCount)

	assert.Equal(t, "inspiration_gallery", body.Sections[3].Kind)
	assert.NotEmpty(t, body.Sections[3].Error)
	assert.JSONEq(t, `[]`, string(body.Sections[3].Items))

	var brands []BrandTile
	require.NoError(t, json.Unmarshal(body.Sections[4].Items, &brands))
	require.Len(t, brands, 1)
	assert.Equal(t, "https://cdn.test/uploads/acme.png", brands[0].Logo)
}

func TestHTTPHandler_ListProductsUsesBrowseState(t *testing.T) {
	var seen capture
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		r.Get("/product", func(w http.ResponseWriter, r *http.Request) {
			seen.set("query", r.URL.RawQuery)
			writeJSON(w, http.StatusOK, `{"data":[{"_id":"p1","title":"Tile","price":10}],"pagination":{"page":2,"limit":12,"total_items":13,"total_pages":2}}`)
		})
	})

	res := env.do(t, http.MethodPatch, "/api/v1/browse", map[string]interface{}{"query": "tile"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = env.do(t, http.MethodPut, "/api/v1/browse/page", PageInput{Page: 2})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var view ProductListView
	decodeBody(t, res, &view)
	require.Len(t, view.Products, 1)
	assert.Equal(t, "$10", view.Products[0].Price)
	assert.Equal(t, 2, view.Pagination.TotalPages)
	assert.Contains(t, seen.get("query"), "q=tile")
	assert.Contains(t, seen.get("query"), "page=2")
	assert.Contains(t, seen.get("query"), "limit=12")
}

// productRows renders n products of which only the first title contains
// "Tile".
func productRows(n int) string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("Paint %d", i)
		if i == 0 {
			title = "Oak Tile"
		}
		rows = append(rows, fmt.Sprintf(`{"_id":"p%d","title":%q,"price":%d}`, i, title, 10+i))
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func TestHTTPHandler_UnpagedProductsAreFilteredLocally(t *testing.T) {
	for _, n := range []int{10, 13} {
		t.Run(fmt.Sprintf("%d products", n), func(t *testing.T) {
			env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
				r.Get("/product", func(w http.ResponseWriter, _ *http.Request) {
					writeJSON(w, http.StatusOK, `{"data":`+productRows(n)+`}`)
				})
			})

			res := env.do(t, http.MethodPatch, "/api/v1/browse", map[string]interface{}{"query": "tile"})
			require.Equal(t, http.StatusOK, res.StatusCode)
			res = env.do(t, http.MethodGet, "/api/v1/products", nil)
			require.Equal(t, http.StatusOK, res.StatusCode)

			var view ProductListView
			decodeBody(t, res, &view)
			require.Len(t, view.Products, 1)
			assert.Equal(t, "p0", view.Products[0].ID)
			assert.Equal(t, 1, view.Pagination.TotalItems)
		})
	}
}

func TestHTTPHandler_PagedProductsAreServedAsSent(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		r.Get("/product", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":`+productRows(20)+`,"pagination":{"page":2,"limit":20,"total_items":40,"total_pages":2}}`)
		})
	})

	res := env.do(t, http.MethodPut, "/api/v1/browse/page", PageInput{Page: 2})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = env.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var view ProductListView
	decodeBody(t, res, &view)
	require.Len(t, view.Products, 20, "rows of a backend page are not sliced again")
	assert.Equal(t, "p0", view.Products[0].ID)
	assert.Equal(t, 2, view.Pagination.Page)
	assert.Equal(t, 40, view.Pagination.TotalItems)
}

// --- Dashboard ---

func TestHTTPHandler_CreateBrandWithLogo(t *testing.T) {
	var seen capture
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		loginRoute(domain.RoleVendor)(r)
		r.Post("/brand", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				writeJSON(w, http.StatusBadRequest, `{"message":"expected multipart"}`)
				return
			}
			seen.set("name", r.FormValue("name"))
			seen.set("slug", r.FormValue("slug"))
			if f, _, err := r.FormFile("logo"); err == nil {
				b, _ := io.ReadAll(f)
				seen.set("logo", string(b))
			}
			writeJSON(w, http.StatusCreated, `{"data":{"_id":"v1","name":"Acme Tiles","slug":"acme-tiles"}}`)
		})
	})
	env.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Acme Tiles"))
	part, err := mw.CreateFormFile("logo", "logo.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("PNGDATA"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/dashboard/brands", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := env.browser.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "Acme Tiles", seen.get("name"))
	assert.Equal(t, "acme-tiles", seen.get("slug"))
	assert.Equal(t, "PNGDATA", seen.get("logo"))
}

func TestHTTPHandler_UpdateCategoryNoContent(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		loginRoute(domain.RoleAdmin)(r)
		r.Patch("/category/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	env.login(t)

	res := env.do(t, http.MethodPatch, "/api/v1/dashboard/categories/c1", map[string]string{"name": "Floor Tiles"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var body struct {
		Notices []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"notices"`
	}
	decodeBody(t, res, &body)
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "success", body.Notices[0].Level)
	assert.Equal(t, "Category updated", body.Notices[0].Message)
}

func TestHTTPHandler_CreateProductFillsSlugAndSKU(t *testing.T) {
	var seen capture
	env := setupTestServer(t, store.NewMemoryStore(), func(r chi.Router) {
		loginRoute(domain.RoleAdmin)(r)
		r.Post("/product", func(w http.ResponseWriter, r *http.Request) {
			var in domain.ProductInput
			_ = json.NewDecoder(r.Body).Decode(&in)
			seen.set("slug", in.Slug)
			seen.set("sku", in.SKU)
			writeJSON(w, http.StatusCreated, `{"data":{"_id":"p9","title":"Céramique Tile","price":20}}`)
		})
	})
	env.login(t)

	res := env.do(t, http.MethodPost, "/api/v1/dashboard/products", map[string]interface{}{
		"title": "Céramique Tile", "price": 20, "category": "c1", "sku": " ab 12 ",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "c-ramique-tile", seen.get("slug"))
	assert.Equal(t, "AB-12", seen.get("sku"))
}

// --- Rate limiting ---

func TestHTTPHandler_RateLimit(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), nil, func(o *Options) {
		o.RateLimit = RateLimitSettings{RequestsPerSecond: 1, Burst: 1}
	})

	res := env.do(t, http.MethodGet, "/api/v1/browse", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = env.do(t, http.MethodGet, "/api/v1/browse", nil)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "1", res.Header.Get("Retry-After"))
}

func TestHTTPHandler_RateLimitIgnoresSessionCookie(t *testing.T) {
	env := setupTestServer(t, store.NewMemoryStore(), nil, func(o *Options) {
		o.RateLimit = RateLimitSettings{RequestsPerSecond: 1, Burst: 1}
	})

	limited := 0
	for i := 0; i < 10; i++ {
		res := sendWithCookie(t, env, http.MethodGet, "/api/v1/browse", session.NewID())
		if res.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 9, limited, "a fresh cookie per request does not buy a fresh bucket")
	assert.Equal(t, 1, env.manager.Len(), "limited requests never open a workspace")
}
