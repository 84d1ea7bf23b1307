package data

import (
	"context"
	"strconv"

	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/query"
)

// --- Cart ---

var cartKeys = []query.Key{
	query.KindKey(KindCart),
	query.KindKey(KindCartCount),
	query.KindKey(KindAdminCarts),
}

func (q *Queries) Cart(ctx context.Context) query.Result[[]domain.CartItem] {
	return query.Fetch(ctx, q.cache, query.KindKey(KindCart), q.opts(), q.svc.Carts.List)
}

func (q *Queries) CartCount(ctx context.Context) query.Result[int] {
	return query.Fetch(ctx, q.cache, query.KindKey(KindCartCount), q.opts(), q.svc.Carts.Count)
}

func (q *Queries) AdminCarts(ctx context.Context, page, limit int) query.Result[domain.Page[domain.AdminCart]] {
	key := query.NewKey(KindAdminCarts, strconv.Itoa(page), strconv.Itoa(limit))
	return query.Fetch(ctx, q.cache, key, q.opts(), func(ctx context.Context) (domain.Page[domain.AdminCart], error) {
		return q.svc.Carts.AdminList(ctx, page, limit)
	})
}

func (q *Queries) AddToCart(ctx context.Context, in domain.AddToCartInput) (*domain.CartItem, error) {
	return mutate(ctx, q, "Added to cart", "Failed to add to cart", func(ctx context.Context) (*domain.CartItem, error) {
		return q.svc.Carts.Add(ctx, in)
	}, cartKeys...)
}

func (q *Queries) UpdateCartQuantity(ctx context.Context, in domain.UpdateQuantityInput) (*domain.CartItem, error) {
	return mutate(ctx, q, "Cart updated", "Failed to update quantity", func(ctx context.Context) (*domain.CartItem, error) {
		return q.svc.Carts.UpdateQuantity(ctx, in)
	}, cartKeys...)
}

func (q *Queries) RemoveFromCart(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Removed from cart", "Failed to remove from cart", func(ctx context.Context) error {
		return q.svc.Carts.Remove(ctx, id)
	}, cartKeys...)
}

// --- Wishlist ---

// Wishlist reads the wishlist with its own, longer staleness window.
func (q *Queries) Wishlist(ctx context.Context) query.Result[[]domain.WishlistItem] {
	o := q.opts()
	o.StaleTime = q.wishlistStale
	return query.Fetch(ctx, q.cache, query.KindKey(KindWishlist), o, q.svc.Wishlist.List)
}

func (q *Queries) AddToWishlist(ctx context.Context, in domain.AddToWishlistInput) (*domain.WishlistItem, error) {
	return mutate(ctx, q, "Added to wishlist", "Failed to add to wishlist", func(ctx context.Context) (*domain.WishlistItem, error) {
		return q.svc.Wishlist.Add(ctx, in)
	}, query.KindKey(KindWishlist))
}

func (q *Queries) RemoveFromWishlist(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Removed from wishlist", "Failed to remove from wishlist", func(ctx context.Context) error {
		return q.svc.Wishlist.Remove(ctx, id)
	}, query.KindKey(KindWishlist))
}

// --- Addresses ---

func (q *Queries) Addresses(ctx context.Context) query.Result[[]domain.Address] {
	return query.Fetch(ctx, q.cache, query.KindKey(KindAddresses), q.opts(), q.svc.Addresses.List)
}

func (q *Queries) Address(ctx context.Context, id string) query.Result[*domain.Address] {
	return query.Fetch(ctx, q.cache, query.NewKey(KindAddress, id), q.detailOpts(id), func(ctx context.Context) (*domain.Address, error) {
		return q.svc.Addresses.Get(ctx, id)
	})
}

func (q *Queries) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	return mutate(ctx, q, "Address added", "Failed to add address", func(ctx context.Context) (*domain.Address, error) {
		return q.svc.Addresses.Create(ctx, in)
	}, query.KindKey(KindAddresses))
}

func (q *Queries) UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error) {
	v, err := mutate(ctx, q, "Address updated", "Failed to update address", func(ctx context.Context) (*domain.Address, error) {
		return q.svc.Addresses.Update(ctx, id, in)
	}, query.KindKey(KindAddresses))
	if err == nil {
		seedDetail(q, query.NewKey(KindAddress, id), v)
	}
	return v, err
}

func (q *Queries) DeleteAddress(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Address deleted", "Failed to delete address", func(ctx context.Context) error {
		return q.svc.Addresses.Delete(ctx, id)
	}, query.KindKey(KindAddresses), query.NewKey(KindAddress, id))
}

// --- Current user ---

// CurrentUser reads /auth/me. It is disabled when the session has no token.
func (q *Queries) CurrentUser(ctx context.Context, authenticated bool) query.Result[*domain.User] {
	o := q.opts()
	o.Enabled = authenticated
	return query.Fetch(ctx, q.cache, query.KindKey(KindCurrentUser), o, q.svc.Auth.Me)
}

// Forget drops every cached read. Used on login and logout so one user's
// data never serves another.
func (q *Queries) Forget() {
	for _, kind := range []string{
		KindAddresses, KindAddress, KindAttributes, KindBanners, KindBanner,
		KindCart, KindCartCount, KindAdminCarts, KindCategories, KindCategory, KindCategoryTree,
		KindBrands, KindBrand, KindWishlist, KindProducts, KindProduct, KindCurrentUser,
	} {
		q.cache.Remove(query.KindKey(kind))
	}
}
