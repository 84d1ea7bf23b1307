package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"marketplace-storefront/internal/domain"
)

// ProductService calls the /product endpoints.
type ProductService struct{ r Requester }

// List returns one page of products filtered by query (as rendered by the
// browse state).
func (s *ProductService) List(ctx context.Context, query url.Values) (domain.Page[domain.Product], error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/product", query, nil, &raw); err != nil {
		return domain.Page[domain.Product]{}, err
	}
	page, limit := atoi(query.Get("page")), atoi(query.Get("limit"))
	return decodePage[domain.Product](raw, page, limit)
}

// Get returns the product detail payload: the product under "data" plus its
// parent and child categories.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.ProductDetail, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, idPath("product", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(raw)
	data := doc.Get("data")
	if !data.IsObject() {
		return nil, fmt.Errorf("service: product %s response has no data object", id)
	}
	var detail domain.ProductDetail
	if err := json.Unmarshal([]byte(data.Raw), &detail.Product); err != nil {
		return nil, fmt.Errorf("service: failed to decode product %s: %w", id, err)
	}
	var err error
	if detail.ParentCategory, err = optionalCategory(doc.Get("parentcategory")); err != nil {
		return nil, err
	}
	if detail.ChildCategory, err = optionalCategory(doc.Get("childcategory")); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *ProductService) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/product", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Product](raw)
}

func (s *ProductService) Update(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPatch, idPath("product", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Product](raw)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("product", id), nil, nil, nil)
}

func optionalCategory(v gjson.Result) (*domain.Category, error) {
	if !v.IsObject() {
		return nil, nil
	}
	var c domain.Category
	if err := json.Unmarshal([]byte(v.Raw), &c); err != nil {
		return nil, fmt.Errorf("service: failed to decode category: %w", err)
	}
	return &c, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
