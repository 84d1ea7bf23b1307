package data

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/query"
	"marketplace-storefront/internal/tree"
)

// --- Categories ---

func (q *Queries) Categories(ctx context.Context) query.Result[[]domain.Category] {
	return query.Fetch(ctx, q.cache, query.KindKey(KindCategories), q.opts(), q.svc.Categories.List)
}

// CategoryTree builds the forest from the backend's tree listing. When the
// tree endpoint fails for any reason but an expired session, the cached flat
// category list is used instead.
func (q *Queries) CategoryTree(ctx context.Context) query.Result[[]*tree.Node] {
	res := query.Fetch(ctx, q.cache, query.KindKey(KindCategoryTree), q.opts(), q.svc.Categories.Tree)
	if res.Err != nil && !errors.Is(res.Err, client.ErrUnauthorized) {
		q.log.WithError(res.Err).Debug("category tree unavailable, building from the flat list")
		res = q.Categories(ctx)
	}
	out := query.Result[[]*tree.Node]{Err: res.Err, Status: res.Status, Stale: res.Stale, FetchedAt: res.FetchedAt}
	if res.OK() {
		out.Data = tree.Build(res.Data)
	}
	return out
}

func (q *Queries) Category(ctx context.Context, id string) query.Result[*domain.Category] {
	return query.Fetch(ctx, q.cache, query.NewKey(KindCategory, id), q.detailOpts(id), func(ctx context.Context) (*domain.Category, error) {
		return q.svc.Categories.Get(ctx, id)
	})
}

func (q *Queries) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	return mutate(ctx, q, "Category created", "Failed to create category", func(ctx context.Context) (*domain.Category, error) {
		return q.svc.Categories.Create(ctx, in)
	}, query.KindKey(KindCategories), query.KindKey(KindCategoryTree))
}

func (q *Queries) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (*domain.Category, error) {
	v, err := mutate(ctx, q, "Category updated", "Failed to update category", func(ctx context.Context) (*domain.Category, error) {
		return q.svc.Categories.Update(ctx, id, in)
	}, query.KindKey(KindCategories), query.KindKey(KindCategoryTree))
	if err == nil {
		seedDetail(q, query.NewKey(KindCategory, id), v)
	}
	return v, err
}

func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Category deleted", "Failed to delete category", func(ctx context.Context) error {
		return q.svc.Categories.Delete(ctx, id)
	}, query.KindKey(KindCategories), query.KindKey(KindCategoryTree), query.NewKey(KindCategory, id))
}

// --- Products ---

// Products reads one listing page. filter is the browse state rendered as
// query values.
func (q *Queries) Products(ctx context.Context, filter url.Values) query.Result[domain.Page[domain.Product]] {
	return query.Fetch(ctx, q.cache, query.ValuesKey(KindProducts, filter), q.opts(), func(ctx context.Context) (domain.Page[domain.Product], error) {
		return q.svc.Products.List(ctx, filter)
	})
}

func (q *Queries) Product(ctx context.Context, id string) query.Result[*domain.ProductDetail] {
	return query.Fetch(ctx, q.cache, query.NewKey(KindProduct, id), q.detailOpts(id), func(ctx context.Context) (*domain.ProductDetail, error) {
		return q.svc.Products.Get(ctx, id)
	})
}

func (q *Queries) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	return mutate(ctx, q, "Product created", "Failed to create product", func(ctx context.Context) (*domain.Product, error) {
		return q.svc.Products.Create(ctx, in)
	}, query.KindKey(KindProducts))
}

func (q *Queries) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	return mutate(ctx, q, "Product updated", "Failed to update product", func(ctx context.Context) (*domain.Product, error) {
		return q.svc.Products.Update(ctx, id, in)
	}, query.KindKey(KindProducts), query.NewKey(KindProduct, id))
}

func (q *Queries) DeleteProduct(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Product deleted", "Failed to delete product", func(ctx context.Context) error {
		return q.svc.Products.Delete(ctx, id)
	}, query.KindKey(KindProducts), query.NewKey(KindProduct, id))
}

// --- Brands ---

func (q *Queries) Brands(ctx context.Context) query.Result[[]domain.Brand] {
	return query.Fetch(ctx, q.cache, query.KindKey(KindBrands), q.opts(), q.svc.Brands.List)
}

func (q *Queries) Brand(ctx context.Context, id string) query.Result[*domain.Brand] {
	return query.Fetch(ctx, q.cache, query.NewKey(KindBrand, id), q.detailOpts(id), func(ctx context.Context) (*domain.Brand, error) {
		return q.svc.Brands.Get(ctx, id)
	})
}

func (q *Queries) CreateBrand(ctx context.Context, in domain.BrandInput) (*domain.Brand, error) {
	return mutate(ctx, q, "Brand created", "Failed to create brand", func(ctx context.Context) (*domain.Brand, error) {
		return q.svc.Brands.Create(ctx, in)
	}, query.KindKey(KindBrands))
}

func (q *Queries) CreateBrandWithLogo(ctx context.Context, in domain.BrandInput, logo client.File) (*domain.Brand, error) {
	return mutate(ctx, q, "Brand created", "Failed to create brand", func(ctx context.Context) (*domain.Brand, error) {
		return q.svc.Brands.CreateMultipart(ctx, in, logo)
	}, query.KindKey(KindBrands))
}

func (q *Queries) UpdateBrand(ctx context.Context, id string, in domain.BrandInput) (*domain.Brand, error) {
	v, err := mutate(ctx, q, "Brand updated", "Failed to update brand", func(ctx context.Context) (*domain.Brand, error) {
		return q.svc.Brands.Update(ctx, id, in)
	}, query.KindKey(KindBrands))
	if err == nil {
		seedDetail(q, query.NewKey(KindBrand, id), v)
	}
	return v, err
}

func (q *Queries) UpdateBrandWithLogo(ctx context.Context, id string, in domain.BrandInput, logo client.File) (*domain.Brand, error) {
	v, err := mutate(ctx, q, "Brand updated", "Failed to update brand", func(ctx context.Context) (*domain.Brand, error) {
		return q.svc.Brands.UpdateMultipart(ctx, id, in, logo)
	}, query.KindKey(KindBrands))
	if err == nil {
		seedDetail(q, query.NewKey(KindBrand, id), v)
	}
	return v, err
}

func (q *Queries) DeleteBrand(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Brand deleted", "Failed to delete brand", func(ctx context.Context) error {
		return q.svc.Brands.Delete(ctx, id)
	}, query.KindKey(KindBrands), query.NewKey(KindBrand, id))
}

// --- Banners ---

func (q *Queries) Banners(ctx context.Context, page, limit int) query.Result[domain.Page[domain.Banner]] {
	key := query.NewKey(KindBanners, strconv.Itoa(page), strconv.Itoa(limit))
	return query.Fetch(ctx, q.cache, key, q.opts(), func(ctx context.Context) (domain.Page[domain.Banner], error) {
		return q.svc.Banners.List(ctx, page, limit)
	})
}

func (q *Queries) Banner(ctx context.Context, id string) query.Result[*domain.Banner] {
	return query.Fetch(ctx, q.cache, query.NewKey(KindBanner, id), q.detailOpts(id), func(ctx context.Context) (*domain.Banner, error) {
		return q.svc.Banners.Get(ctx, id)
	})
}

func (q *Queries) CreateBanner(ctx context.Context, in domain.BannerInput) (*domain.Banner, error) {
	return mutate(ctx, q, "Banner created", "Failed to create banner", func(ctx context.Context) (*domain.Banner, error) {
		return q.svc.Banners.Create(ctx, in)
	}, query.KindKey(KindBanners))
}

func (q *Queries) UpdateBanner(ctx context.Context, id string, in domain.BannerInput) (*domain.Banner, error) {
	v, err := mutate(ctx, q, "Banner updated", "Failed to update banner", func(ctx context.Context) (*domain.Banner, error) {
		return q.svc.Banners.Update(ctx, id, in)
	}, query.KindKey(KindBanners))
	if err == nil {
		seedDetail(q, query.NewKey(KindBanner, id), v)
	}
	return v, err
}

func (q *Queries) DeleteBanner(ctx context.Context, id string) error {
	return mutateErr(ctx, q, "Banner deleted", "Failed to delete banner", func(ctx context.Context) error {
		return q.svc.Banners.Delete(ctx, id)
	}, query.KindKey(KindBanners), query.NewKey(KindBanner, id))
}

// --- Attributes ---

func (q *Queries) Attributes(ctx context.Context) query.Result[[]domain.AttributeDefinition] {
	return query.Fetch(ctx, q.cache, query.KindKey(KindAttributes), q.opts(), q.svc.Attributes.List)
}

func (q *Queries) CreateAttribute(ctx context.Context, in domain.AttributeDefinitionInput) (*domain.AttributeDefinition, error) {
	return mutate(ctx, q, "Attribute created", "Failed to create attribute", func(ctx context.Context) (*domain.AttributeDefinition, error) {
		return q.svc.Attributes.Create(ctx, in)
	}, query.KindKey(KindAttributes))
}
