// Package service holds one thin module per marketplace API resource. Every
// method performs exactly one REST call and returns the decoded body.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
)

// Requester is the subset of *client.Client the services need.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error
	DoMultipart(ctx context.Context, method, path string, form client.Multipart, out interface{}) error
}

// Services groups the per-resource services over one Requester.
type Services struct {
	Addresses  *AddressService
	Attributes *AttributeService
	Banners    *BannerService
	Carts      *CartService
	Categories *CategoryService
	Brands     *BrandService
	Wishlist   *WishlistService
	Products   *ProductService
	Auth       *AuthService
}

// New wires every service to r.
func New(r Requester) *Services {
	return &Services{
		Addresses:  &AddressService{r: r},
		Attributes: &AttributeService{r: r},
		Banners:    &BannerService{r: r},
		Carts:      &CartService{r: r},
		Categories: &CategoryService{r: r},
		Brands:     &BrandService{r: r},
		Wishlist:   &WishlistService{r: r},
		Products:   &ProductService{r: r},
		Auth:       &AuthService{r: r},
	}
}

// --- Response unwrapping ---
// The backend is not consistent about envelopes: some endpoints return the
// bare resource, others wrap it under "data" (lists sometimes under "items").

var listFields = []string{"data", "items", "results"}

func decodeList[T any](raw json.RawMessage, out *[]T) error {
	doc := gjson.ParseBytes(raw)
	target := doc
	if !doc.IsArray() {
		target = gjson.Result{}
		for _, f := range listFields {
			if v := doc.Get(f); v.IsArray() {
				target = v
				break
			}
		}
	}
	if !target.IsArray() {
		*out = []T{}
		if doc.Type == gjson.Null || len(raw) == 0 {
			return nil
		}
		return fmt.Errorf("service: expected a list response, got %s", abbreviate(doc.Raw))
	}
	items := make([]T, 0)
	if err := json.Unmarshal([]byte(target.Raw), &items); err != nil {
		return fmt.Errorf("service: failed to decode list: %w", err)
	}
	*out = items
	return nil
}

// decodeOne decodes a single resource, unwrapping a "data" envelope. An
// empty or null body is a success that carries no resource and yields nil.
func decodeOne[T any](raw json.RawMessage) (*T, error) {
	doc := gjson.ParseBytes(raw)
	if doc.Type == gjson.Null {
		return nil, nil
	}
	body := doc.Raw
	if doc.IsObject() && !doc.Get("_id").Exists() {
		switch v := doc.Get("data"); {
		case v.IsObject():
			body = v.Raw
		case v.Exists() && v.Type == gjson.Null:
			return nil, nil
		}
	}
	var out T
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("service: failed to decode resource: %w", err)
	}
	return &out, nil
}

func decodePage[T any](raw json.RawMessage, page, limit int) (domain.Page[T], error) {
	var items []T
	if err := decodeList(raw, &items); err != nil {
		return domain.Page[T]{}, err
	}
	doc := gjson.ParseBytes(raw)
	result := domain.Page[T]{Data: items}
	if p := doc.Get("pagination"); p.IsObject() {
		if err := json.Unmarshal([]byte(p.Raw), &result.Pagination); err != nil {
			return domain.Page[T]{}, fmt.Errorf("service: failed to decode pagination: %w", err)
		}
		result.Paged = true
		return result, nil
	}
	total := len(items)
	for _, f := range []string{"total", "totalItems", "count"} {
		if v := doc.Get(f); v.Type == gjson.Number {
			total = int(v.Int())
			result.Paged = true
			break
		}
	}
	if limit <= 0 {
		limit = len(items)
	}
	if page <= 0 {
		page = 1
	}
	result.Pagination = domain.NewPagination(page, limit, total)
	return result, nil
}

func abbreviate(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return q
}

func idPath(resource, id string) string {
	return "/" + resource + "/" + url.PathEscape(id)
}
