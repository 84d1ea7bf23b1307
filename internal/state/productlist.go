// Package state holds the small per-session UI stores: the product listing
// filters and the persisted sidebar flag.
package state

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"marketplace-storefront/internal/domain"
)

// PageSize is the fixed number of products per listing page.
const PageSize = 12

// SortKey orders the listing.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortNewest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// Filters is an immutable snapshot of the listing state. Id sets are sorted.
type Filters struct {
	Query           string           `json:"query"`
	Categories      []string         `json:"categories"`
	Vendors         []string         `json:"vendors"`
	MinPrice        decimal.Decimal  `json:"min_price"`
	MaxPrice        *decimal.Decimal `json:"max_price"`
	InStock         *bool            `json:"in_stock"`
	Sort            SortKey          `json:"sort"`
	Page            int              `json:"page"`
	PageSize        int              `json:"page_size"`
	FilterModalOpen bool             `json:"filter_modal_open"`
	SortModalOpen   bool             `json:"sort_modal_open"`
}

type listState struct {
	query       string
	categories  map[string]struct{}
	vendors     map[string]struct{}
	minPrice    decimal.Decimal
	maxPrice    *decimal.Decimal
	inStock     *bool
	sort        SortKey
	page        int
	filterModal bool
	sortModal   bool
}

func defaultState() listState {
	return listState{
		categories: map[string]struct{}{},
		vendors:    map[string]struct{}{},
		minPrice:   decimal.Zero,
		sort:       SortNewest,
		page:       1,
	}
}

// ProductList is the filter, sort and pagination state of the browsing UI.
// Every filter change sends the listing back to page 1.
type ProductList struct {
	mu      sync.Mutex
	s       listState
	subs    map[int]func(Filters)
	nextSub int
}

// NewProductList returns a list state at its defaults.
func NewProductList() *ProductList {
	return &ProductList{s: defaultState(), subs: map[int]func(Filters){}}
}

// update applies fn under the lock and publishes the new snapshot.
func (p *ProductList) update(resetPage bool, fn func(s *listState)) {
	_ = p.tryUpdate(resetPage, func(s *listState) error {
		fn(s)
		return nil
	})
}

// tryUpdate is update for changes that validate against the current state.
// When fn fails nothing is applied or published.
func (p *ProductList) tryUpdate(resetPage bool, fn func(s *listState) error) error {
	p.mu.Lock()
	next := p.s
	if err := fn(&next); err != nil {
		p.mu.Unlock()
		return err
	}
	p.s = next
	if resetPage {
		p.s.page = 1
	}
	snap := p.snapshotLocked()
	subs := make([]func(Filters), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func (p *ProductList) SetQuery(q string) {
	p.update(true, func(s *listState) { s.query = strings.TrimSpace(q) })
}

// ToggleCategory adds id to the selected categories, or removes it when present.
func (p *ProductList) ToggleCategory(id string) {
	p.update(true, func(s *listState) { toggle(s.categories, id) })
}

func (p *ProductList) SetCategories(ids []string) {
	p.update(true, func(s *listState) { s.categories = toSet(ids) })
}

// ToggleVendor adds id to the selected vendors, or removes it when present.
func (p *ProductList) ToggleVendor(id string) {
	p.update(true, func(s *listState) { toggle(s.vendors, id) })
}

func (p *ProductList) SetVendors(ids []string) {
	p.update(true, func(s *listState) { s.vendors = toSet(ids) })
}

// SetPriceRange sets the price bounds. A nil max leaves the range unbounded.
func (p *ProductList) SetPriceRange(min decimal.Decimal, max *decimal.Decimal) error {
	return p.tryUpdate(true, func(s *listState) error {
		if err := checkRange(min, max); err != nil {
			return err
		}
		s.minPrice = min
		s.maxPrice = copyDecimal(max)
		return nil
	})
}

// SetStock filters by stock flag; nil shows everything.
func (p *ProductList) SetStock(inStock *bool) {
	p.update(true, func(s *listState) { s.inStock = copyBool(inStock) })
}

func (p *ProductList) SetSort(k SortKey) error {
	if !k.Valid() {
		return fmt.Errorf("state: unknown sort key %q", k)
	}
	p.update(true, func(s *listState) { s.sort = k })
	return nil
}

// SetPage moves to page n (minimum 1) without touching the filters.
func (p *ProductList) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	p.update(false, func(s *listState) { s.page = n })
}

func (p *ProductList) SetFilterModal(open bool) {
	p.update(false, func(s *listState) { s.filterModal = open })
}

func (p *ProductList) SetSortModal(open bool) {
	p.update(false, func(s *listState) { s.sortModal = open })
}

// Reset restores every field to its default in one step.
func (p *ProductList) Reset() {
	p.update(false, func(s *listState) { *s = defaultState() })
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Query        *string          `json:"query,omitempty"`
	Categories   *[]string        `json:"categories,omitempty"`
	Vendors      *[]string        `json:"vendors,omitempty"`
	MinPrice     *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice     *decimal.Decimal `json:"max_price,omitempty"`
	ClearMax     bool             `json:"clear_max_price,omitempty"`
	InStock      *bool            `json:"in_stock,omitempty"`
	ClearInStock bool             `json:"clear_in_stock,omitempty"`
	Sort         *SortKey         `json:"sort,omitempty"`
	FilterModal  *bool            `json:"filter_modal_open,omitempty"`
	SortModal    *bool            `json:"sort_modal_open,omitempty"`
}

// touchesFilters reports whether the patch changes anything besides modal flags.
func (pt Patch) touchesFilters() bool {
	return pt.Query != nil || pt.Categories != nil || pt.Vendors != nil ||
		pt.MinPrice != nil || pt.MaxPrice != nil || pt.ClearMax ||
		pt.InStock != nil || pt.ClearInStock || pt.Sort != nil
}

// Patch validates pt and applies it as a single change. Page resets to 1
// when any filter field is set.
func (p *ProductList) Patch(pt Patch) error {
	if pt.Sort != nil && !pt.Sort.Valid() {
		return fmt.Errorf("state: unknown sort key %q", *pt.Sort)
	}
	return p.tryUpdate(pt.touchesFilters(), func(s *listState) error {
		max := s.maxPrice
		if pt.ClearMax {
			max = nil
		} else if pt.MaxPrice != nil {
			max = pt.MaxPrice
		}
		min := s.minPrice
		if pt.MinPrice != nil {
			min = *pt.MinPrice
		}
		if err := checkRange(min, max); err != nil {
			return err
		}
		if pt.Query != nil {
			s.query = strings.TrimSpace(*pt.Query)
		}
		if pt.Categories != nil {
			s.categories = toSet(*pt.Categories)
		}
		if pt.Vendors != nil {
			s.vendors = toSet(*pt.Vendors)
		}
		if pt.MinPrice != nil {
			s.minPrice = *pt.MinPrice
		}
		if pt.ClearMax {
			s.maxPrice = nil
		} else if pt.MaxPrice != nil {
			s.maxPrice = copyDecimal(pt.MaxPrice)
		}
		if pt.ClearInStock {
			s.inStock = nil
		} else if pt.InStock != nil {
			s.inStock = copyBool(pt.InStock)
		}
		if pt.Sort != nil {
			s.sort = *pt.Sort
		}
		if pt.FilterModal != nil {
			s.filterModal = *pt.FilterModal
		}
		if pt.SortModal != nil {
			s.sortModal = *pt.SortModal
		}
		return nil
	})
}

// Subscribe calls fn with a snapshot after every change. The returned func
// unsubscribes.
func (p *ProductList) Subscribe(fn func(Filters)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSub++
	id := p.nextSub
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Snapshot returns a copy of the current state.
func (p *ProductList) Snapshot() Filters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *ProductList) snapshotLocked() Filters {
	return Filters{
		Query:           p.s.query,
		Categories:      sortedKeys(p.s.categories),
		Vendors:         sortedKeys(p.s.vendors),
		MinPrice:        p.s.minPrice,
		MaxPrice:        copyDecimal(p.s.maxPrice),
		InStock:         copyBool(p.s.inStock),
		Sort:            p.s.sort,
		Page:            p.s.page,
		PageSize:        PageSize,
		FilterModalOpen: p.s.filterModal,
		SortModalOpen:   p.s.sortModal,
	}
}

// Values renders the current state as listing query parameters.
func (p *ProductList) Values() url.Values {
	return p.Snapshot().Values()
}

// Apply filters, sorts and paginates products by the current state.
func (p *ProductList) Apply(products []domain.Product) domain.Page[domain.Product] {
	return p.Snapshot().Apply(products, nil)
}

// --- Filters ---

// Values renders f as listing query parameters.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	for _, c := range f.Categories {
		v.Add("category", c)
	}
	for _, id := range f.Vendors {
		v.Add("vendor", id)
	}
	if f.MinPrice.IsPositive() {
		v.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", f.MaxPrice.String())
	}
	if f.InStock != nil {
		v.Set("inStock", fmt.Sprint(*f.InStock))
	}
	v.Set("sort", string(f.Sort))
	v.Set("page", fmt.Sprint(f.Page))
	v.Set("limit", fmt.Sprint(PageSize))
	return v
}

// Apply filters, sorts and paginates products by f. expand, when non-nil,
// maps a selected category id to every id it covers (itself plus descendants).
func (f Filters) Apply(products []domain.Product, expand func(id string) []string) domain.Page[domain.Product] {
	categories := map[string]struct{}{}
	for _, id := range f.Categories {
		if expand == nil {
			categories[id] = struct{}{}
			continue
		}
		for _, d := range expand(id) {
			categories[d] = struct{}{}
		}
	}
	vendors := toSet(f.Vendors)
	needle := strings.ToLower(f.Query)

	matched := make([]domain.Product, 0, len(products))
	for _, pr := range products {
		if needle != "" && !strings.Contains(strings.ToLower(pr.Title), needle) {
			continue
		}
		if len(categories) > 0 {
			if _, ok := categories[pr.CategoryID]; !ok {
				continue
			}
		}
		if len(vendors) > 0 {
			if _, ok := vendors[pr.VendorID]; !ok {
				continue
			}
		}
		if pr.Price.LessThan(f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && pr.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStock != nil && pr.InStock != *f.InStock {
			continue
		}
		matched = append(matched, pr)
	}

	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price.LessThan(matched[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price.GreaterThan(matched[j].Price) })
	default:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return domain.Page[domain.Product]{
		Data:       matched[start:end],
		Pagination: domain.NewPagination(page, PageSize, len(matched)),
	}
}

// --- helpers ---

func checkRange(min decimal.Decimal, max *decimal.Decimal) error {
	if min.IsNegative() {
		return fmt.Errorf("state: minimum price must not be negative")
	}
	if max != nil && max.LessThan(min) {
		return fmt.Errorf("state: maximum price %s is below minimum %s", max, min)
	}
	return nil
}

func toggle(set map[string]struct{}, id string) {
	if id == "" {
		return
	}
	if _, ok := set[id]; ok {
		delete(set, id)
		return
	}
	set[id] = struct{}{}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
