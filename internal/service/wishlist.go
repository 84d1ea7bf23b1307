package service

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-storefront/internal/domain"
)

// WishlistService calls the /wishlist endpoints.
type WishlistService struct{ r Requester }

func (s *WishlistService) List(ctx context.Context) ([]domain.WishlistItem, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/wishlist", nil, nil, &raw); err != nil {
		return nil, err
	}
	var out []domain.WishlistItem
	return out, decodeList(raw, &out)
}

func (s *WishlistService) Add(ctx context.Context, in domain.AddToWishlistInput) (*domain.WishlistItem, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/wishlist", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.WishlistItem](raw)
}

func (s *WishlistService) Remove(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("wishlist", id), nil, nil, nil)
}
