package service

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-storefront/internal/domain"
)

// CategoryService calls the /category endpoints.
type CategoryService struct{ r Requester }

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/category", nil, nil, &raw); err != nil {
		return nil, err
	}
	var out []domain.Category
	return out, decodeList(raw, &out)
}

// Tree returns the backend's tree-shaped listing, flattened back into records.
// Each nested child keeps a ParentID pointing at the node it was nested under.
func (s *CategoryService) Tree(ctx context.Context) ([]domain.Category, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/category/tree", nil, nil, &raw); err != nil {
		return nil, err
	}
	var nodes []treeRecord
	if err := decodeList(raw, &nodes); err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(nodes))
	type item struct {
		rec    treeRecord
		parent *string
	}
	queue := make([]item, 0, len(nodes))
	for _, n := range nodes {
		queue = append(queue, item{rec: n})
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		c := it.rec.Category
		if c.ParentID == nil && it.parent != nil {
			c.ParentID = it.parent
		}
		out = append(out, c)
		id := c.ID
		for _, child := range it.rec.Children {
			queue = append(queue, item{rec: child, parent: &id})
		}
	}
	return out, nil
}

type treeRecord struct {
	domain.Category
	Children []treeRecord `json:"children"`
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, idPath("category", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Category](raw)
}

func (s *CategoryService) Create(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/category", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Category](raw)
}

func (s *CategoryService) Update(ctx context.Context, id string, in domain.CategoryInput) (*domain.Category, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPatch, idPath("category", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Category](raw)
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("category", id), nil, nil, nil)
}
