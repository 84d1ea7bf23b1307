package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"marketplace-storefront/internal/domain"
)

// AuthService calls the /auth endpoints.
type AuthService struct{ r Requester }

func (s *AuthService) Login(ctx context.Context, in domain.Credentials) (*domain.AuthResponse, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/auth/login", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeAuth(raw)
}

func (s *AuthService) Register(ctx context.Context, in domain.Registration) (*domain.AuthResponse, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/auth/register", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeAuth(raw)
}

// Me returns the user the current bearer token belongs to.
func (s *AuthService) Me(ctx context.Context) (*domain.User, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &raw); err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(raw)
	body := doc
	for _, f := range []string{"user", "data.user", "data"} {
		if v := doc.Get(f); v.IsObject() {
			body = v
			break
		}
	}
	var u domain.User
	if err := json.Unmarshal([]byte(body.Raw), &u); err != nil {
		return nil, fmt.Errorf("service: failed to decode user: %w", err)
	}
	return &u, nil
}

func decodeAuth(raw json.RawMessage) (*domain.AuthResponse, error) {
	doc := gjson.ParseBytes(raw)
	var out domain.AuthResponse
	for _, f := range []string{"token", "accessToken", "data.token", "data.accessToken"} {
		if v := doc.Get(f); v.Type == gjson.String && v.Str != "" {
			out.Token = v.Str
			break
		}
	}
	if out.Token == "" {
		return nil, fmt.Errorf("service: auth response carries no token")
	}
	for _, f := range []string{"user", "data.user"} {
		if v := doc.Get(f); v.IsObject() {
			if err := json.Unmarshal([]byte(v.Raw), &out.User); err != nil {
				return nil, fmt.Errorf("service: failed to decode user: %w", err)
			}
			break
		}
	}
	return &out, nil
}
