package api

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/format"
)

const maxLogoBytes = 5 << 20

// pageParams reads page and limit from the query string. Missing or invalid
// values fall back to 1 and def.
func pageParams(r *http.Request, def int) (page, limit int) {
	page, limit = 1, def
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}

// --- Product Handlers ---

// DashboardListProducts lists products for the catalog management screens.
// The query string is forwarded unchanged apart from page and limit.
func (h *HTTPHandler) DashboardListProducts(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	page, limit := pageParams(r, 20)
	values := url.Values{}
	for k, v := range r.URL.Query() {
		values[k] = v
	}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))
	respondRead(h, w, r, ws, ws.Queries.Products(r.Context(), values), "Failed to retrieve products")
}

func (h *HTTPHandler) DashboardGetProduct(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Product(r.Context(), chi.URLParam(r, "productId")), "Failed to retrieve product")
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input domain.ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if !normalizeProduct(w, &input) {
		return
	}
	ws := workspaceFrom(r)
	p, err := ws.Queries.CreateProduct(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusCreated, p, err, "Failed to create product")
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var input domain.ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if !normalizeProduct(w, &input) {
		return
	}
	ws := workspaceFrom(r)
	p, err := ws.Queries.UpdateProduct(r.Context(), chi.URLParam(r, "productId"), input)
	h.respondMutation(w, r, ws, http.StatusOK, p, err, "Failed to update product")
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.DeleteProduct(r.Context(), chi.URLParam(r, "productId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to delete product")
}

// normalizeProduct fills the slug from the title, canonicalises the SKU and
// rejects negative prices.
func normalizeProduct(w http.ResponseWriter, in *domain.ProductInput) bool {
	if in.Price.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Validation failed: price must not be negative")
		return false
	}
	if in.Slug == "" {
		in.Slug = format.Slug(in.Title)
	} else {
		in.Slug = format.Slug(in.Slug)
	}
	in.SKU = format.SKU(in.SKU)
	return true
}

// --- Category Handlers ---

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input domain.CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	input.Slug = categorySlug(input)
	ws := workspaceFrom(r)
	c, err := ws.Queries.CreateCategory(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusCreated, c, err, "Failed to create category")
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var input domain.CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	id := chi.URLParam(r, "categoryId")
	if input.ParentID != nil && *input.ParentID == id {
		respondWithError(w, http.StatusBadRequest, "Validation failed: a category cannot be its own parent")
		return
	}
	input.Slug = categorySlug(input)
	ws := workspaceFrom(r)
	c, err := ws.Queries.UpdateCategory(r.Context(), id, input)
	h.respondMutation(w, r, ws, http.StatusOK, c, err, "Failed to update category")
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.DeleteCategory(r.Context(), chi.URLParam(r, "categoryId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to delete category")
}

func categorySlug(in domain.CategoryInput) string {
	if in.Slug != "" {
		return format.Slug(in.Slug)
	}
	return format.Slug(in.Name)
}

// --- Attribute Handlers ---

func (h *HTTPHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Attributes(r.Context()), "Failed to retrieve attributes")
}

func (h *HTTPHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var input domain.AttributeDefinitionInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	a, err := ws.Queries.CreateAttribute(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusCreated, a, err, "Failed to create attribute")
}

// --- Banner Handlers ---

func (h *HTTPHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	page, limit := pageParams(r, 10)
	respondRead(h, w, r, ws, ws.Queries.Banners(r.Context(), page, limit), "Failed to retrieve banners")
}

func (h *HTTPHandler) GetBanner(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Banner(r.Context(), chi.URLParam(r, "bannerId")), "Failed to retrieve banner")
}

func (h *HTTPHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var input domain.BannerInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	b, err := ws.Queries.CreateBanner(r.Context(), input)
	h.respondMutation(w, r, ws, http.StatusCreated, b, err, "Failed to create banner")
}

func (h *HTTPHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	var input domain.BannerInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	ws := workspaceFrom(r)
	b, err := ws.Queries.UpdateBanner(r.Context(), chi.URLParam(r, "bannerId"), input)
	h.respondMutation(w, r, ws, http.StatusOK, b, err, "Failed to update banner")
}

func (h *HTTPHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.DeleteBanner(r.Context(), chi.URLParam(r, "bannerId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to delete banner")
}

// --- Brand Handlers ---

func (h *HTTPHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Brand(r.Context(), chi.URLParam(r, "brandId")), "Failed to retrieve brand")
}

// CreateBrand accepts either a JSON body or a multipart form carrying a
// "logo" file. The upstream request uses the same encoding.
func (h *HTTPHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	input, logo, ok := h.decodeBrand(w, r)
	if !ok {
		return
	}
	ws := workspaceFrom(r)
	var (
		b   *domain.Brand
		err error
	)
	if logo != nil {
		b, err = ws.Queries.CreateBrandWithLogo(r.Context(), input, *logo)
	} else {
		b, err = ws.Queries.CreateBrand(r.Context(), input)
	}
	h.respondMutation(w, r, ws, http.StatusCreated, b, err, "Failed to create brand")
}

func (h *HTTPHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	input, logo, ok := h.decodeBrand(w, r)
	if !ok {
		return
	}
	ws := workspaceFrom(r)
	id := chi.URLParam(r, "brandId")
	var (
		b   *domain.Brand
		err error
	)
	if logo != nil {
		b, err = ws.Queries.UpdateBrandWithLogo(r.Context(), id, input, *logo)
	} else {
		b, err = ws.Queries.UpdateBrand(r.Context(), id, input)
	}
	h.respondMutation(w, r, ws, http.StatusOK, b, err, "Failed to update brand")
}

func (h *HTTPHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	err := ws.Queries.DeleteBrand(r.Context(), chi.URLParam(r, "brandId"))
	h.respondMutation(w, r, ws, http.StatusOK, nil, err, "Failed to delete brand")
}

// decodeBrand reads a BrandInput from JSON or multipart/form-data. logo is
// non-nil only for multipart requests that carry a logo file.
func (h *HTTPHandler) decodeBrand(w http.ResponseWriter, r *http.Request) (domain.BrandInput, *client.File, bool) {
	var input domain.BrandInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if !h.decodeAndValidate(w, r, &input) {
			return input, nil, false
		}
		input.Slug = brandSlug(input)
		return input, nil, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes+(1<<20))
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return input, nil, false
	}
	input.Name = r.FormValue("name")
	input.Slug = r.FormValue("slug")
	input.Description = r.FormValue("description")
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return input, nil, false
	}
	input.Slug = brandSlug(input)

	file, header, err := r.FormFile("logo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return input, nil, true
	case err != nil:
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return input, nil, false
	}
	// The multipart form keeps the file open until the request completes.
	return input, &client.File{Field: "logo", Filename: header.Filename, Content: file}, true
}

func brandSlug(in domain.BrandInput) string {
	if in.Slug != "" {
		return format.Slug(in.Slug)
	}
	return format.Slug(in.Name)
}

// --- Admin ---

func (h *HTTPHandler) ListAdminCarts(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	page, limit := pageParams(r, 20)
	respondRead(h, w, r, ws, ws.Queries.AdminCarts(r.Context(), page, limit), "Failed to retrieve carts")
}
