package service

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-storefront/internal/domain"
)

// AddressService calls the /address endpoints.
type AddressService struct{ r Requester }

func (s *AddressService) List(ctx context.Context) ([]domain.Address, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/address", nil, nil, &raw); err != nil {
		return nil, err
	}
	var out []domain.Address
	return out, decodeList(raw, &out)
}

func (s *AddressService) Get(ctx context.Context, id string) (*domain.Address, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, idPath("address", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Address](raw)
}

func (s *AddressService) Create(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/address", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Address](raw)
}

func (s *AddressService) Update(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPatch, idPath("address", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.Address](raw)
}

func (s *AddressService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("address", id), nil, nil, nil)
}
