// Package data holds the per-resource read and mutation hooks. Reads go
// through the query cache; mutations call the service, invalidate the keys
// they affect and post a notice.
package data

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/notify"
	"marketplace-storefront/internal/query"
	"marketplace-storefront/internal/service"
)

// Cache kinds. List kinds are plural, detail kinds singular.
const (
	KindAddresses    = "addresses"
	KindAddress      = "address"
	KindAttributes   = "attributes"
	KindBanners      = "banners"
	KindBanner       = "banner"
	KindCart         = "cart"
	KindCartCount    = "cart-count"
	KindAdminCarts   = "admin-carts"
	KindCategories   = "categories"
	KindCategory     = "category"
	KindCategoryTree = "category-tree"
	KindBrands       = "brands"
	KindBrand        = "brand"
	KindWishlist     = "wishlist"
	KindProducts     = "products"
	KindProduct      = "product"
	KindCurrentUser  = "me"
	defaultWishStale = 10 * time.Minute
)

// Queries is the hook set of one workspace.
type Queries struct {
	svc           *service.Services
	cache         *query.Cache
	notifier      notify.Notifier
	wishlistStale time.Duration
	log           logrus.FieldLogger
}

// Option customises Queries.
type Option func(*Queries)

// WithWishlistStaleTime sets the staleness window of wishlist reads.
func WithWishlistStaleTime(d time.Duration) Option {
	return func(q *Queries) { q.wishlistStale = d }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(q *Queries) { q.log = logging.Component(log, "queries") }
}

// New binds the hooks to svc, cache and notifier. A nil notifier drops notices.
func New(svc *service.Services, cache *query.Cache, notifier notify.Notifier, opts ...Option) *Queries {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	q := &Queries{
		svc:           svc,
		cache:         cache,
		notifier:      notifier,
		wishlistStale: defaultWishStale,
		log:           logging.Component(nil, "queries"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Cache exposes the underlying query cache.
func (q *Queries) Cache() *query.Cache { return q.cache }

// --- helpers ---

func (q *Queries) opts() query.Options {
	return q.cache.Options()
}

// detailOpts disables the read when id is empty.
func (q *Queries) detailOpts(id string) query.Options {
	o := q.cache.Options()
	o.Enabled = id != ""
	return o
}

// mutate runs fn and, on success, invalidates keys and posts success. On
// failure it posts a notice built from the error with failure as fallback.
func mutate[T any](ctx context.Context, q *Queries, success, failure string, fn func(ctx context.Context) (T, error), keys ...query.Key) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		q.log.WithError(err).WithField("action", failure).Debug("mutation failed")
		q.notifier.Notify(notify.FromError(err, failure))
		return v, err
	}
	for _, k := range keys {
		q.cache.Invalidate(k)
	}
	q.notifier.Notify(notify.Notice{Level: notify.LevelSuccess, Message: success})
	return v, nil
}

// seedDetail stores the resource an update returned under its detail key, so
// the next detail read needs no round trip. An update that returned nothing
// invalidates the key instead.
func seedDetail[T any](q *Queries, key query.Key, v *T) {
	if v == nil {
		q.cache.Invalidate(key)
		return
	}
	q.cache.Set(key, v)
}

func mutateErr(ctx context.Context, q *Queries, success, failure string, fn func(ctx context.Context) error, keys ...query.Key) error {
	_, err := mutate(ctx, q, success, failure, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, keys...)
	return err
}
