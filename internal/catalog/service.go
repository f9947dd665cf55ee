package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// ProductInput captures payload for creating or updating a product.
type ProductInput struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	UnitPrice   float64 `json:"unitPrice"`
	Description string  `json:"description"`
	Active      *bool   `json:"active"`
}

// ListResult carries one page of products plus the org total.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// Service orchestrates product reads through the cache and writes through
// the store.
type Service struct {
	store Store
	cache *Cache
}

// NewService constructs a catalog service.
func NewService(store Store, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

func cacheResult(result string) {
	if obs.ProductCacheOps != nil {
		obs.ProductCacheOps.WithLabelValues(result).Inc()
	}
}

// List returns one page of the org's products. The first page of active
// products is served from the cache when possible.
func (s *Service) List(ctx context.Context, orgID string, onlyActive bool, page, perPage int) (ListResult, error) {
	if s == nil || s.store == nil {
		return ListResult{}, ErrStoreUnavailable
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	cacheable := onlyActive && page == 1 && perPage == 50

	if cacheable {
		var cached ListResult
		hit, err := s.cache.GetJSON(ctx, listKey(orgID), &cached)
		if err == nil && hit {
			cacheResult("hit")
			return cached, nil
		}
		cacheResult("miss")
	}

	offset := (page - 1) * perPage
	items, err := s.store.List(ctx, orgID, onlyActive, perPage, offset)
	if err != nil {
		return ListResult{}, err
	}
	total, err := s.store.Count(ctx, orgID, onlyActive)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Items: items, Total: total, Page: page, Limit: perPage}
	if cacheable {
		_ = s.cache.SetJSON(ctx, listKey(orgID), result)
	}
	return result, nil
}

// Get returns one product by id, cache first.
func (s *Service) Get(ctx context.Context, orgID, id string) (Product, error) {
	if s == nil || s.store == nil {
		return Product{}, ErrStoreUnavailable
	}
	pid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid product id", http.StatusBadRequest, err)
	}

	var cached Product
	hit, err := s.cache.GetJSON(ctx, productKey(orgID, pid.String()), &cached)
	if err == nil && hit {
		cacheResult("hit")
		return cached, nil
	}
	cacheResult("miss")

	product, err := s.store.Get(ctx, orgID, pid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, productKey(orgID, pid.String()), product)
	return product, nil
}

// Create inserts a product and invalidates the org's cached list.
func (s *Service) Create(ctx context.Context, orgID string, input ProductInput) (Product, error) {
	if s == nil || s.store == nil {
		return Product{}, ErrStoreUnavailable
	}
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	product, err := s.store.Insert(ctx, Product{
		OrgID:       orgID,
		Name:        input.Name,
		SKU:         input.SKU,
		UnitPrice:   input.UnitPrice,
		Description: input.Description,
		Active:      active,
	})
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.Invalidate(ctx, orgID, "")
	return product, nil
}

// Update modifies a product and invalidates both cache entries.
func (s *Service) Update(ctx context.Context, orgID, id string, input ProductInput) (Product, error) {
	if s == nil || s.store == nil {
		return Product{}, ErrStoreUnavailable
	}
	pid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid product id", http.StatusBadRequest, err)
	}
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	product, err := s.store.Update(ctx, Product{
		ID:          pid,
		OrgID:       orgID,
		Name:        input.Name,
		SKU:         input.SKU,
		UnitPrice:   input.UnitPrice,
		Description: input.Description,
		Active:      active,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, err
	}
	_ = s.cache.Invalidate(ctx, orgID, pid.String())
	return product, nil
}

// Delete removes a product and invalidates both cache entries.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if s == nil || s.store == nil {
		return ErrStoreUnavailable
	}
	pid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return common.NewAppError("VALIDATION_ERROR", "invalid product id", http.StatusBadRequest, err)
	}
	if err := s.store.Delete(ctx, orgID, pid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return err
	}
	return s.cache.Invalidate(ctx, orgID, pid.String())
}

func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return common.NewAppError("VALIDATION_ERROR", "name is required", http.StatusBadRequest, nil)
	}
	if input.UnitPrice < 0 {
		return common.NewAppError("VALIDATION_ERROR", "unitPrice must not be negative", http.StatusBadRequest, nil)
	}
	return nil
}
