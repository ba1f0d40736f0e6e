package service

import (
	"context"
	"time"

	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/paging"
)

// ProductService lists catalog products, applying the filters the catalog
// does not enforce reliably.
type ProductService struct {
	catalog         *CatalogClient
	hydrator        *ImageHydrator
	fetcher         *paging.Fetcher[*domain.Product]
	defaultPageSize int
	maxPageSize     int
}

// ProductServiceConfig holds paging limits.
type ProductServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxBackendPages int
}

// NewProductService creates a ProductService.
// Parameters:
//   - catalog: catalog client.
//   - hydrator: image hydrator run on every fetched chunk; may be nil.
//   - cfg: paging limits.
//
// Returns:
//   - *ProductService: initialized service.
func NewProductService(catalog *CatalogClient, hydrator *ImageHydrator, cfg *ProductServiceConfig) *ProductService {
	return &ProductService{
		catalog:         catalog,
		hydrator:        hydrator,
		fetcher:         paging.NewFetcher[*domain.Product](&paging.Config{MaxBackendPages: cfg.MaxBackendPages}),
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

// Search returns one page of products matching q.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - token: catalog bearer token of the caller.
//   - q: filters and page, normalized before use.
//
// Returns:
//   - *domain.ProductPage: the page, possibly shorter than the page size.
//   - error: catalog failure.
func (s *ProductService) Search(ctx context.Context, token string, q domain.ProductQuery) (*domain.ProductPage, error) {
	start := time.Now()
	q.Normalize(s.defaultPageSize, s.maxPageSize)

	var filters []paging.Predicate[*domain.Product]
	for _, f := range q.PostFetchFilters() {
		filters = append(filters, f)
	}

	backend := func(ctx context.Context, page, size int) ([]*domain.Product, error) {
		return s.catalog.ListProducts(ctx, token, q, page, size)
	}
	var hydrate paging.Hydrator[*domain.Product]
	if s.hydrator != nil {
		hydrate = s.hydrator.For(token)
	}

	items, err := s.fetcher.FetchPage(ctx, paging.Request[*domain.Product]{
		PageSize:   q.PageSize,
		PageNumber: q.PageNumber,
		Filters:    filters,
	}, backend, hydrate)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Product{}
	}

	logger.With(logger.Fields{
		logger.FieldCount:      len(items),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		"filtered":             len(filters) > 0,
	}).Info(ctx, "Product search: page=%d, size=%d", q.PageNumber, q.PageSize)

	return &domain.ProductPage{
		Items:      items,
		PageNumber: q.PageNumber,
		PageSize:   q.PageSize,
		Filtered:   len(filters) > 0,
	}, nil
}

// Families returns the catalog's product families.
func (s *ProductService) Families(ctx context.Context, token string) ([]domain.Family, error) {
	return s.catalog.ListFamilies(ctx, token)
}

// Brands returns the catalog's product brands.
func (s *ProductService) Brands(ctx context.Context, token string) ([]domain.Brand, error) {
	return s.catalog.ListBrands(ctx, token)
}
