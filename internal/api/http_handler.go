package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/format"
	"marketplace-storefront/internal/layout"
	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/notify"
	"marketplace-storefront/internal/query"
	"marketplace-storefront/internal/workspace"
)

// Workspaces opens, resumes, rotates and discards per-session workspaces.
type Workspaces interface {
	Open(ctx context.Context, id string) (*workspace.Workspace, error)
	Resume(ctx context.Context, id string) (*workspace.Workspace, bool, error)
	Rotate(ctx context.Context, old *workspace.Workspace) (*workspace.Workspace, error)
	Discard(id string)
}

// CookieSettings controls the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Options are the HTTPHandler dependencies.
type Options struct {
	Workspaces Workspaces
	Layout     *layout.Layout
	Currency   *format.CurrencyFormatter
	Images     format.ImageResolver
	Cookie     CookieSettings
	LoginPath  string
	RateLimit  RateLimitSettings
	Logger     logrus.FieldLogger
}

// HTTPHandler serves the storefront's JSON views.
type HTTPHandler struct {
	workspaces Workspaces
	layout     *layout.Layout
	currency   *format.CurrencyFormatter
	images     format.ImageResolver
	cookie     CookieSettings
	loginPath  string
	limiter    *RateLimiter
	validate   *validator.Validate
	log        logrus.FieldLogger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(opts Options) *HTTPHandler {
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = "storefront_sid"
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.Layout == nil {
		opts.Layout = layout.Default()
	}
	if opts.Currency == nil {
		opts.Currency, _ = format.NewCurrencyFormatter("en-IN", "₹")
	}
	log := logging.Component(opts.Logger, "http")
	return &HTTPHandler{
		workspaces: opts.Workspaces,
		layout:     opts.Layout,
		currency:   opts.Currency,
		images:     opts.Images,
		cookie:     opts.Cookie,
		loginPath:  opts.LoginPath,
		limiter:    NewRateLimiter(opts.RateLimit, log),
		validate:   validator.New(),
		log:        log,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error    string          `json:"error"`
	Redirect string          `json:"redirect,omitempty"`
	Notices  []notify.Notice `json:"notices,omitempty"`
}

// MutationResponse wraps the result of a write together with the notices it
// produced.
type MutationResponse struct {
	Data    interface{}     `json:"data,omitempty"`
	Notices []notify.Notice `json:"notices"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logrus.WithError(err).Error("failed to encode JSON response")
		}
	}
}

// decodeAndValidate reads a JSON body into dst and runs the validator over it.
// It writes the 400 response itself and reports whether the caller may go on.
func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// respondUpstreamError maps a marketplace API failure to a response. A 401
// ends the session; other client errors pass through with the backend's
// message; everything else is a bad gateway.
func (h *HTTPHandler) respondUpstreamError(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, err error, fallback string) {
	if errors.Is(err, client.ErrUnauthorized) {
		h.endSession(w, r, ws, "Your session has expired, please sign in again")
		return
	}
	status, msg := http.StatusBadGateway, fallback
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status, msg = apiErr.Status, apiErr.Message
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	h.log.WithError(err).WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": status,
	}).Warn("upstream call failed")
	respondWithJSON(w, status, ErrorResponse{Error: msg, Notices: ws.Notices.Drain()})
}

// endSession answers 401 with the login redirect after the session has been
// purged, and drops the workspace and its cookie.
func (h *HTTPHandler) endSession(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, message string) {
	ws.TakeUnauthorized()
	if err := ws.Session.Clear(r.Context()); err != nil {
		h.log.WithError(err).Warn("failed to clear session")
	}
	h.workspaces.Discard(ws.ID)
	h.expireSessionCookie(w)
	respondWithJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message, Redirect: h.loginPath})
}

// respondRead writes a cache read result, or the error it carries.
func respondRead[T any](h *HTTPHandler, w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, res query.Result[T], fallback string) {
	if res.Err != nil {
		h.respondUpstreamError(w, r, ws, res.Err, fallback)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// respondMutation writes the outcome of a write with the drained notices.
func (h *HTTPHandler) respondMutation(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, status int, data interface{}, err error, fallback string) {
	if err != nil {
		h.respondUpstreamError(w, r, ws, err, fallback)
		return
	}
	respondWithJSON(w, status, MutationResponse{Data: data, Notices: ws.Notices.Drain()})
}

func (h *HTTPHandler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
	})
}

func (h *HTTPHandler) expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the storefront.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.limiter.Handler())
		r.Use(h.WithWorkspace)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})

		r.Get("/home", h.GetHome)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{productId}", h.GetProductDetail)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Get("/tree", h.GetCategoryTree)
			r.Get("/{categoryId}", h.GetCategory)
		})
		r.Get("/brands", h.ListBrands)

		r.Route("/browse", func(r chi.Router) {
			r.Get("/", h.GetBrowseState)
			r.Patch("/", h.PatchBrowseState)
			r.Post("/reset", h.ResetBrowseState)
			r.Put("/page", h.SetBrowsePage)
			r.Post("/categories/{categoryId}/toggle", h.ToggleBrowseCategory)
			r.Post("/vendors/{vendorId}/toggle", h.ToggleBrowseVendor)
		})
		r.Route("/ui/sidebar", func(r chi.Router) {
			r.Get("/", h.GetSidebar)
			r.Put("/", h.PutSidebar)
			r.Post("/toggle", h.ToggleSidebar)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Get("/count", h.GetCartCount)
				r.Post("/", h.AddToCart)
				r.Post("/update-quantity", h.UpdateCartQuantity)
				r.Delete("/{itemId}", h.RemoveFromCart)
			})
			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", h.GetWishlist)
				r.Post("/", h.AddToWishlist)
				r.Delete("/{itemId}", h.RemoveFromWishlist)
			})
			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", h.ListAddresses)
				r.Post("/", h.CreateAddress)
				r.Get("/{addressId}", h.GetAddress)
				r.Patch("/{addressId}", h.UpdateAddress)
				r.Delete("/{addressId}", h.DeleteAddress)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(h.RequireRole(domain.RoleVendor, domain.RoleAdmin))
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.DashboardListProducts)
				r.Post("/", h.CreateProduct)
				r.Get("/{productId}", h.DashboardGetProduct)
				r.Patch("/{productId}", h.UpdateProduct)
				r.Delete("/{productId}", h.DeleteProduct)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Patch("/{categoryId}", h.UpdateCategory)
				r.Delete("/{categoryId}", h.DeleteCategory)
			})
			r.Route("/attributes", func(r chi.Router) {
				r.Get("/", h.ListAttributes)
				r.Post("/", h.CreateAttribute)
			})
			r.Route("/banners", func(r chi.Router) {
				r.Get("/", h.ListBanners)
				r.Post("/", h.CreateBanner)
				r.Get("/{bannerId}", h.GetBanner)
				r.Patch("/{bannerId}", h.UpdateBanner)
				r.Delete("/{bannerId}", h.DeleteBanner)
			})
			r.Route("/brands", func(r chi.Router) {
				r.Get("/", h.ListBrands)
				r.Post("/", h.CreateBrand)
				r.Get("/{brandId}", h.GetBrand)
				r.Patch("/{brandId}", h.UpdateBrand)
				r.Delete("/{brandId}", h.DeleteBrand)
			})
			r.With(h.RequireRole(domain.RoleAdmin)).Get("/carts", h.ListAdminCarts)
		})
	})
}
