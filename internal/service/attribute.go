package service

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-storefront/internal/domain"
)

// AttributeService calls the /attribute endpoints.
type AttributeService struct{ r Requester }

func (s *AttributeService) List(ctx context.Context) ([]domain.AttributeDefinition, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/attribute", nil, nil, &raw); err != nil {
		return nil, err
	}
	var out []domain.AttributeDefinition
	return out, decodeList(raw, &out)
}

func (s *AttributeService) Create(ctx context.Context, in domain.AttributeDefinitionInput) (*domain.AttributeDefinition, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/attribute", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.AttributeDefinition](raw)
}
