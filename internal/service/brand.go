package service

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
)

// BrandService calls the /brand endpoints. Brands are the vendors of the
// marketplace.
//
// Create and Update come in two encodings. The JSON variants send a logo URL;
// the Multipart variants upload the logo file itself. Callers pick one.
type BrandService struct{ r Requester }

func (s *BrandService) List(ctx context.Context) ([]domain.Brand, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/brand", nil, nil, &raw); err != nil {
		return nil, err
	}
	var out []domain.Brand
	return out, decodeList(raw, &out)
}

func (s *BrandService) Get(ctx context.Context, id string) (*domain.Brand, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, idPath("brand", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeBrand(raw)
}

func (s *BrandService) Create(ctx context.Context, in domain.BrandInput) (*domain.Brand, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/brand", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeBrand(raw)
}

// CreateMultipart creates a brand, uploading logo as the "logo" form file.
func (s *BrandService) CreateMultipart(ctx context.Context, in domain.BrandInput, logo client.File) (*domain.Brand, error) {
	var raw json.RawMessage
	if err := s.r.DoMultipart(ctx, http.MethodPost, "/brand", brandForm(in, logo), &raw); err != nil {
		return nil, err
	}
	return decodeBrand(raw)
}

func (s *BrandService) Update(ctx context.Context, id string, in domain.BrandInput) (*domain.Brand, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPatch, idPath("brand", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeBrand(raw)
}

// UpdateMultipart updates a brand, replacing its logo with the uploaded file.
func (s *BrandService) UpdateMultipart(ctx context.Context, id string, in domain.BrandInput, logo client.File) (*domain.Brand, error) {
	var raw json.RawMessage
	if err := s.r.DoMultipart(ctx, http.MethodPatch, idPath("brand", id), brandForm(in, logo), &raw); err != nil {
		return nil, err
	}
	return decodeBrand(raw)
}

func (s *BrandService) Delete(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("brand", id), nil, nil, nil)
}

func decodeBrand(raw json.RawMessage) (*domain.Brand, error) {
	return decodeOne[domain.Brand](raw)
}

func brandForm(in domain.BrandInput, logo client.File) client.Multipart {
	fields := map[string]string{"name": in.Name}
	if in.Slug != "" {
		fields["slug"] = in.Slug
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if logo.Field == "" {
		logo.Field = "logo"
	}
	form := client.Multipart{Fields: fields}
	if logo.Content != nil {
		form.Files = []client.File{logo}
	}
	return form
}
