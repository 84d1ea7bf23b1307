package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/format"
	"marketplace-storefront/internal/layout"
	"marketplace-storefront/internal/query"
	"marketplace-storefront/internal/state"
	"marketplace-storefront/internal/tree"
	"marketplace-storefront/internal/workspace"
)

// --- View models ---

// ProductCard is a product as shown in grids and carousels.
type ProductCard struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Slug       string          `json:"slug,omitempty"`
	Price      string          `json:"price"`
	Amount     decimal.Decimal `json:"amount"`
	MRP        string          `json:"mrp,omitempty"`
	InStock    bool            `json:"in_stock"`
	Image      string          `json:"image"`
	CategoryID string          `json:"category_id,omitempty"`
	VendorID   string          `json:"vendor_id,omitempty"`
}

// ProductDetailView is the product page.
type ProductDetailView struct {
	ProductCard
	SKU            string             `json:"sku,omitempty"`
	Images         []string           `json:"images"`
	Attributes     []domain.Attribute `json:"attributes"`
	Breadcrumb     []domain.Category  `json:"breadcrumb"`
	ParentCategory *domain.Category   `json:"parent_category,omitempty"`
	ChildCategory  *domain.Category   `json:"child_category,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// CategoryTile is a category as shown in the carousel and bento grid.
type CategoryTile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug,omitempty"`
	Image      string `json:"image"`
	ChildCount int    `json:"child_count"`
}

// BannerSlide is one hero slide.
type BannerSlide struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
	Link  string `json:"link,omitempty"`
}

// BrandTile is a featured brand.
type BrandTile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
	Logo string `json:"logo"`
}

// HomeSection is one rendered layout section. A section whose data could not
// be loaded carries Error and no items; the rest of the page still renders.
type HomeSection struct {
	Kind     layout.Kind `json:"kind"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle,omitempty"`
	Items    interface{} `json:"items"`
	Error    string      `json:"error,omitempty"`
}

// ProductListView is the listing page.
type ProductListView struct {
	Filters    state.Filters     `json:"filters"`
	Products   []ProductCard     `json:"products"`
	Pagination domain.Pagination `json:"pagination"`
	Status     query.Status      `json:"status"`
	Stale      bool              `json:"stale"`
}

func (h *HTTPHandler) productCard(p domain.Product) ProductCard {
	card := ProductCard{
		ID:         p.ID,
		Title:      p.Title,
		Slug:       p.Slug,
		Price:      h.currency.FormatValue(p.Price),
		Amount:     p.Price,
		InStock:    p.InStock,
		Image:      h.images.Resolve(""),
		CategoryID: p.CategoryID,
		VendorID:   p.VendorID,
	}
	if len(p.Images) > 0 {
		card.Image = h.images.Resolve(p.Images[0])
	}
	if p.MRP != nil && p.MRP.GreaterThan(p.Price) {
		card.MRP = h.currency.Format(p.MRP)
	}
	return card
}

func (h *HTTPHandler) productCards(products []domain.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, h.productCard(p))
	}
	return cards
}

func (h *HTTPHandler) categoryTile(n *tree.Node) CategoryTile {
	return CategoryTile{
		ID:         n.ID,
		Name:       n.Name,
		Slug:       n.Slug,
		Image:      h.images.Resolve(n.Image),
		ChildCount: len(n.Children),
	}
}

// --- Home ---

// GetHome renders the home page sections in layout order.
func (h *HTTPHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	ctx := r.Context()

	sections := make([]HomeSection, 0, len(h.layout.Sections))
	for _, s := range h.layout.Sections {
		section := HomeSection{Kind: s.Kind, Title: s.Title, Subtitle: s.Subtitle}
		items, err := h.homeSection(ctx, ws, s)
		if errors.Is(err, client.ErrUnauthorized) {
			h.endSession(w, r, ws, "Your session has expired, please sign in again")
			return
		}
		if err != nil {
			h.log.WithError(err).WithField("section", s.Kind).Warn("home section unavailable")
			section.Error = "This section is unavailable right now"
			items = []struct{}{}
		}
		section.Items = items
		sections = append(sections, section)
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

func (h *HTTPHandler) homeSection(ctx context.Context, ws *workspace.Workspace, s layout.Section) (interface{}, error) {
	switch s.Kind {
	case layout.KindHero:
		res := ws.Queries.Banners(ctx, 1, s.Limit)
		if res.Err != nil {
			return nil, res.Err
		}
		banners := make([]domain.Banner, 0, len(res.Data.Data))
		for _, b := range res.Data.Data {
			if b.IsActive {
				banners = append(banners, b)
			}
		}
		sort.SliceStable(banners, func(i, j int) bool { return banners[i].Position < banners[j].Position })
		slides := make([]BannerSlide, 0, len(banners))
		for _, b := range limitSlice(banners, s.Limit) {
			slides = append(slides, BannerSlide{ID: b.ID, Title: b.Title, Image: h.images.Resolve(b.Image), Link: b.Link})
		}
		return slides, nil

	case layout.KindCategoryCarousel, layout.KindBentoGrid:
		res := ws.Queries.CategoryTree(ctx)
		if res.Err != nil {
			return nil, res.Err
		}
		nodes := pickCategories(res.Data, s.Categories)
		tiles := make([]CategoryTile, 0, len(nodes))
		for _, n := range limitSlice(nodes, s.Limit) {
			tiles = append(tiles, h.categoryTile(n))
		}
		return tiles, nil

	case layout.KindInspirationGallery:
		filter := url.Values{
			"sort":  {string(state.SortNewest)},
			"page":  {"1"},
			"limit": {strconv.Itoa(s.Limit)},
		}
		res := ws.Queries.Products(ctx, filter)
		if res.Err != nil {
			return nil, res.Err
		}
		return h.productCards(limitSlice(res.Data.Data, s.Limit)), nil

	case layout.KindBrands:
		res := ws.Queries.Brands(ctx)
		if res.Err != nil {
			return nil, res.Err
		}
		tiles := make([]BrandTile, 0, s.Limit)
		for _, b := range limitSlice(res.Data, s.Limit) {
			tiles = append(tiles, BrandTile{ID: b.ID, Name: b.Name, Slug: b.Slug, Logo: h.images.Resolve(b.Logo)})
		}
		return tiles, nil
	}
	return []struct{}{}, nil
}

// pickCategories returns the pinned categories in pinned order, or the roots
// when nothing is pinned.
func pickCategories(roots []*tree.Node, pinned []string) []*tree.Node {
	if len(pinned) == 0 {
		return roots
	}
	byID := map[string]*tree.Node{}
	tree.Walk(roots, 0, func(n *tree.Node, _ int) bool {
		byID[n.ID] = n
		return true
	})
	out := make([]*tree.Node, 0, len(pinned))
	for _, id := range pinned {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

func limitSlice[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// --- Products ---

// ListProducts renders the listing page for the session's browse state.
// Selected categories include their descendants. A response that carries
// its own pagination is served as sent. One without it is treated as the
// unfiltered catalog and filtered, sorted and paged here.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	ctx := r.Context()
	filters := ws.ProductList.Snapshot()

	var expand func(string) []string
	if len(filters.Categories) > 0 {
		if cats := ws.Queries.CategoryTree(ctx); cats.OK() {
			expand = func(id string) []string { return tree.Descendants(cats.Data, id) }
		}
	}

	values := filters.Values()
	if expand != nil {
		values.Del("category")
		seen := map[string]bool{}
		for _, id := range filters.Categories {
			for _, d := range expand(id) {
				if !seen[d] {
					seen[d] = true
					values.Add("category", d)
				}
			}
		}
	}

	res := ws.Queries.Products(ctx, values)
	if res.Err != nil {
		h.respondUpstreamError(w, r, ws, res.Err, "Failed to retrieve products")
		return
	}
	page := res.Data
	if !page.Paged {
		page = filters.Apply(page.Data, expand)
	}
	respondWithJSON(w, http.StatusOK, ProductListView{
		Filters:    filters,
		Products:   h.productCards(page.Data),
		Pagination: page.Pagination,
		Status:     res.Status,
		Stale:      res.Stale,
	})
}

// GetProductDetail renders the product page.
func (h *HTTPHandler) GetProductDetail(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	ctx := r.Context()
	id := chi.URLParam(r, "productId")

	res := ws.Queries.Product(ctx, id)
	if res.Err != nil {
		h.respondUpstreamError(w, r, ws, res.Err, "Failed to retrieve product")
		return
	}
	if res.Data == nil {
		respondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	detail := res.Data
	p := detail.Product

	view := ProductDetailView{
		ProductCard:    h.productCard(p),
		SKU:            p.SKU,
		Images:         h.images.ResolveAll(p.Images),
		Attributes:     format.ParseAttributes(p.Attributes, h.log),
		ParentCategory: detail.ParentCategory,
		ChildCategory:  detail.ChildCategory,
		CreatedAt:      p.CreatedAt,
	}
	view.Breadcrumb = h.breadcrumb(ctx, ws, detail)
	respondWithJSON(w, http.StatusOK, view)
}

// breadcrumb walks the category list up from the product's category. When
// the list is unavailable it falls back to the categories in the payload.
func (h *HTTPHandler) breadcrumb(ctx context.Context, ws *workspace.Workspace, detail *domain.ProductDetail) []domain.Category {
	leaf := detail.Product.CategoryID
	if detail.ChildCategory != nil {
		leaf = detail.ChildCategory.ID
	}
	if cats := ws.Queries.Categories(ctx); cats.OK() && leaf != "" {
		if path := tree.Path(cats.Data, leaf); len(path) > 0 {
			return path
		}
	}
	path := make([]domain.Category, 0, 2)
	if detail.ParentCategory != nil {
		path = append(path, *detail.ParentCategory)
	}
	if detail.ChildCategory != nil && (detail.ParentCategory == nil || detail.ChildCategory.ID != detail.ParentCategory.ID) {
		path = append(path, *detail.ChildCategory)
	}
	return path
}

// --- Categories and brands ---

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Categories(r.Context()), "Failed to retrieve categories")
}

// GetCategoryTree renders the category forest with its size.
func (h *HTTPHandler) GetCategoryTree(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	res := ws.Queries.CategoryTree(r.Context())
	if res.Err != nil {
		h.respondUpstreamError(w, r, ws, res.Err, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"roots":  res.Data,
		"count":  tree.Count(res.Data),
		"status": res.Status,
		"stale":  res.Stale,
	})
}

// GetCategory renders one category with its breadcrumb and subtree ids.
func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	ctx := r.Context()
	id := chi.URLParam(r, "categoryId")

	res := ws.Queries.Category(ctx, id)
	if res.Err != nil {
		h.respondUpstreamError(w, r, ws, res.Err, "Failed to retrieve category")
		return
	}
	body := map[string]interface{}{"category": res.Data}
	if all := ws.Queries.CategoryTree(ctx); all.OK() {
		cats := ws.Queries.Categories(ctx)
		body["breadcrumb"] = tree.Path(cats.Data, id)
		body["descendants"] = tree.Descendants(all.Data, id)
	}
	respondWithJSON(w, http.StatusOK, body)
}

func (h *HTTPHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	respondRead(h, w, r, ws, ws.Queries.Brands(r.Context()), "Failed to retrieve brands")
}
