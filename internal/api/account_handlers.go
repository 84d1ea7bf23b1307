package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/notify"
	"marketplace-storefront/internal/state"
)

// --- Auth Handlers ---

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.Credentials
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	resp, err := ws.Services.Auth.Login(r.Context(), input)
	h.completeSignIn(w, r, resp, err, "Signed in", "Invalid email or password")
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.Registration
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	resp, err := ws.Services.Auth.Register(r.Context(), input)
	h.completeSignIn(w, r, resp, err, "Account created", "Registration failed")
}

// completeSignIn stores the credentials of a successful login or registration
// under a freshly minted session id. Cached reads of the previous identity
// are dropped along with the old id.
func (h *HTTPHandler) completeSignIn(w http.ResponseWriter, r *http.Request, resp *domain.AuthResponse, err error, success, failure string) {
	ws := workspaceFrom(r)
	if err != nil {
		ws.TakeUnauthorized()
		notice := notify.FromError(err, failure)
		status := http.StatusBadGateway
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		if errors.Is(err, client.ErrUnauthorized) {
			notice.Message = failure
		}
		respondWithJSON(w, status, ErrorResponse{Error: notice.Message, Notices: []notify.Notice{notice}})
		return
	}
	ws.Queries.Forget()
	ws, err = h.workspaces.Rotate(r.Context(), ws)
	if err != nil {
		h.log.WithError(err).Error("failed to rotate session")
		respondWithError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}
	h.setSessionCookie(w, ws.ID)
	if err := ws.Session.Login(r.Context(), resp.Token, resp.User); err != nil {
		h.log.WithError(err).Error("failed to persist session")
		respondWithError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}
	h.log.WithField("user_id", resp.User.ID).Info("user signed in")
	respondWithJSON(w, http.StatusOK, MutationResponse{
		Data:    ws.Session.Auth(),
		Notices: []notify.Notice{{Level: notify.LevelSuccess, Message: success}},
	})
}

// Logout clears the session and its workspace.
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	if err := ws.Session.Clear(r.Context()); err != nil {
		h.log.WithError(err).Error("failed to clear session")
		respondWithError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	ws.Queries.Forget()
	h.workspaces.Discard(ws.ID)
	h.expireSessionCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"redirect": h.loginPath})
}

// Me returns the guard-facing auth state, refreshing the cached user from
// the backend when signed in.
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	auth := ws.Session.Auth()
	if auth.IsAuthenticated {
		res := ws.Queries.CurrentUser(r.Context(), true)
		switch {
		case errors.Is(res.Err, client.ErrUnauthorized):
			h.endSession(w, r, ws, "Your session has expired, please sign in again")
			return
		case res.Err != nil:
			h.log.WithError(res.Err).Warn("failed to refresh current user, serving cached record")
		case res.Data != nil && (auth.User == nil || *auth.User != *res.Data):
			if err := ws.Session.SetUser(r.Context(), *res.Data); err != nil {
				h.log.WithError(err).Warn("failed to persist refreshed user")
			}
			auth = ws.Session.Auth()
		}
	}
	respondWithJSON(w, http.StatusOK, auth)
}

// --- Browse state ---

func (h *HTTPHandler) GetBrowseState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, workspaceFrom(r).ProductList.Snapshot())
}

func (h *HTTPHandler) PatchBrowseState(w http.ResponseWriter, r *http.Request) {
	var patch state.Patch
	if !h.decodeAndValidate(w, r, &patch) {
		return
	}
	list := workspaceFrom(r).ProductList
	if err := list.Patch(patch); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, list.Snapshot())
}

func (h *HTTPHandler) ResetBrowseState(w http.ResponseWriter, r *http.Request) {
	list := workspaceFrom(r).ProductList
	list.Reset()
	respondWithJSON(w, http.StatusOK, list.Snapshot())
}

// PageInput is the payload of PUT /browse/page.
type PageInput struct {
	Page int `json:"page" validate:"required,gte=1"`
}

func (h *HTTPHandler) SetBrowsePage(w http.ResponseWriter, r *http.Request) {
	var input PageInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	list := workspaceFrom(r).ProductList
	list.SetPage(input.Page)
	respondWithJSON(w, http.StatusOK, list.Snapshot())
}

func (h *HTTPHandler) ToggleBrowseCategory(w http.ResponseWriter, r *http.Request) {
	list := workspaceFrom(r).ProductList
	list.ToggleCategory(chi.URLParam(r, "categoryId"))
	respondWithJSON(w, http.StatusOK, list.Snapshot())
}

func (h *HTTPHandler) ToggleBrowseVendor(w http.ResponseWriter, r *http.Request) {
	list := workspaceFrom(r).ProductList
	list.ToggleVendor(chi.URLParam(r, "vendorId"))
	respondWithJSON(w, http.StatusOK, list.Snapshot())
}

// --- Sidebar ---

// SidebarState is the payload of the sidebar endpoints.
type SidebarState struct {
	Collapsed *bool `json:"collapsed" validate:"required"`
}

func (h *HTTPHandler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	collapsed := workspaceFrom(r).Sidebar.Collapsed()
	respondWithJSON(w, http.StatusOK, SidebarState{Collapsed: &collapsed})
}

func (h *HTTPHandler) PutSidebar(w http.ResponseWriter, r *http.Request) {
	var input SidebarState
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	sidebar := workspaceFrom(r).Sidebar
	if err := sidebar.SetCollapsed(r.Context(), *input.Collapsed); err != nil {
		h.log.WithError(err).Warn("sidebar preference not persisted")
	}
	collapsed := sidebar.Collapsed()
	respondWithJSON(w, http.StatusOK, SidebarState{Collapsed: &collapsed})
}

func (h *HTTPHandler) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	collapsed, err := workspaceFrom(r).Sidebar.Toggle(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("sidebar preference not persisted")
	}
	respondWithJSON(w, http.StatusOK, SidebarState{Collapsed: &collapsed})
}

// --- Cart Handlers ---

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Cart(r.Context()), "Failed to retrieve cart")
}

func (h *HTTPHandler) GetCartCount(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.CartCount(r.Context()), "Failed to retrieve cart count")
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var input domain.AddToCartInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	item, err := ws.Queries.AddToCart(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusCreated, item, err, "Failed to add to cart")
}

func (h *HTTPHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var input domain.UpdateQuantityInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	item, err := ws.Queries.UpdateCartQuantity(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusOK, item, err, "Failed to update quantity")
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.RemoveFromCart(r.Context(), chi.URLParam(r, "itemId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to remove from cart")
}

// --- Wishlist Handlers ---

func (h *HTTPHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Wishlist(r.Context()), "Failed to retrieve wishlist")
}

func (h *HTTPHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var input domain.AddToWishlistInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	item, err := ws.Queries.AddToWishlist(r.Context(), input)
	if err != nil && notify.IsDuplicate(err) && !errors.Is(err, client.ErrUnauthorized) {
		// Already saved: report the info notice with a success status.
		respondWithJSON(w, http.StatusOK, MutationResponse{Notices: ws.Notices.Drain()})
		return
	}
	h.respondMutation(w, r, ws, http.StatusCreated, item, err, "Failed to add to wishlist")
}

func (h *HTTPHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.RemoveFromWishlist(r.Context(), chi.URLParam(r, "itemId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to remove from wishlist")
}

// --- Address Handlers ---

func (h *HTTPHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Addresses(r.Context()), "Failed to retrieve addresses")
}

func (h *HTTPHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Address(r.Context(), chi.URLParam(r, "addressId")), "Failed to retrieve address")
}

func (h *HTTPHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var input domain.AddressInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	addr, err := ws.Queries.CreateAddress(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusCreated, addr, err, "Failed to add address")
}

func (h *HTTPHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var input domain.AddressInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	addr, err := ws.Queries.UpdateAddress(r.Context(), chi.URLParam(r, "addressId"), input)
	h.respondMutation(w, r, ws, http.StatusOK, addr, err, "Failed to update address")
}

func (h *HTTPHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.DeleteAddress(r.Context(), chi.URLParam(r, "addressId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to delete address")
}
