package service

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-storefront/internal/domain"
)

// BannerService calls the /banner endpoints.
type BannerService struct{ r Requester }

// List returns one page of banners; page and limit are sent as query parameters.
func (s *BannerService) List(ctx context.Context, page, limit int) (domain.Page[domain.Banner], error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/banner", pageQuery(page, limit), nil, &raw); err != nil {
		return domain.Page[domain.Banner]{}, err
	}
	return decodePage[domain.Banner](raw, page, limit)
}

func (s *BannerService) Get(ctx context.Context, id string) (*domain.Banner, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, idPath("banner", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Banner](raw)
}

func (s *BannerService) Create(ctx context.Context, in domain.BannerInput) (*domain.Banner, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/banner", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Banner](raw)
}

func (s *BannerService) Update(ctx context.Context, id string, in domain.BannerInput) (*domain.Banner, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPatch, idPath("banner", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Banner](raw)
}

func (s *BannerService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("banner", id), nil, nil, nil)
}
