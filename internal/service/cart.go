package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"marketplace-storefront/internal/domain"
)

// CartService calls the /cart endpoints.
type CartService struct{ r Requester }

func (s *CartService) List(ctx context.Context) ([]domain.CartItem, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/cart", nil, nil, &raw); err != nil {
		return nil, err
	}
	var out []domain.CartItem
	return out, decodeList(raw, &out)
}

// Count returns the number of items in the cart. The backend answers either
// a bare number or an object with a count field.
func (s *CartService) Count(ctx context.Context) (int, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/cart/count", nil, nil, &raw); err != nil {
		return 0, err
	}
	doc := gjson.ParseBytes(raw)
	for _, v := range []gjson.Result{doc, doc.Get("count"), doc.Get("data.count"), doc.Get("data")} {
		if v.Type == gjson.Number {
			return int(v.Int()), nil
		}
	}
	return 0, fmt.Errorf("service: unexpected cart count response %s", abbreviate(doc.Raw))
}

func (s *CartService) Add(ctx context.Context, in domain.AddToCartInput) (*domain.CartItem, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/cart", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.CartItem](raw)
}

func (s *CartService) UpdateQuantity(ctx context.Context, in domain.UpdateQuantityInput) (*domain.CartItem, error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodPost, "/cart/update-quantity", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeOne[domain.CartItem](raw)
}

func (s *CartService) Remove(ctx context.Context, id string) error {
	return s.r.Do(ctx, http.MethodDelete, idPath("cart", id), nil, nil, nil)
}

// AdminList returns every user's cart; admin only on the backend.
func (s *CartService) AdminList(ctx context.Context, page, limit int) (domain.Page[domain.AdminCart], error) {
	var raw json.RawMessage
	if err := s.r.Do(ctx, http.MethodGet, "/cart/admin/list", pageQuery(page, limit), nil, &raw); err != nil {
		return domain.Page[domain.AdminCart]{}, err
	}
	return decodePage[domain.AdminCart](raw, page, limit)
}
