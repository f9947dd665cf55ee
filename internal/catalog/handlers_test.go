package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/tenant"
)

type fakeStore struct {
	products map[uuid.UUID]Product
	listHits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[uuid.UUID]Product)}
}

func (f *fakeStore) Insert(_ context.Context, p Product) (Product, error) {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) Update(_ context.Context, p Product) (Product, error) {
	existing, ok := f.products[p.ID]
	if !ok || existing.OrgID != p.OrgID {
		return Product{}, ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) Delete(_ context.Context, orgID string, id uuid.UUID) error {
	existing, ok := f.products[id]
	if !ok || existing.OrgID != orgID {
		return ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) Get(_ context.Context, orgID string, id uuid.UUID) (Product, error) {
	existing, ok := f.products[id]
	if !ok || existing.OrgID != orgID {
		return Product{}, ErrNotFound
	}
	return existing, nil
}

func (f *fakeStore) List(_ context.Context, orgID string, onlyActive bool, limit, offset int) ([]Product, error) {
	f.listHits++
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		if p.OrgID != orgID {
			continue
		}
		if onlyActive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) Count(_ context.Context, orgID string, onlyActive bool) (int64, error) {
	var total int64
	for _, p := range f.products {
		if p.OrgID != orgID {
			continue
		}
		if onlyActive && !p.Active {
			continue
		}
		total++
	}
	return total, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeStore, *redis.Client) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	service := NewService(store, NewCache(client, time.Minute))
	return NewHandler(service), store, client
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/products", h.Routes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, orgID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if orgID != "" {
		req = req.WithContext(tenant.WithOrg(req.Context(), orgID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetProduct(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newRouter(h)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", "org-1", `{"name":"Widget","unitPrice":19.99}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Widget", created.Data.Name)
	require.True(t, created.Data.Active)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/products/"+created.Data.ID.String(), "org-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetProductScopedToOrg(t *testing.T) {
	h, store, _ := newTestHandler(t)
	router := newRouter(h)

	p, err := store.Insert(context.Background(), Product{OrgID: "org-1", Name: "Widget", Active: true})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/"+p.ID.String(), "org-2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListServedFromCacheOnSecondRead(t *testing.T) {
	h, store, _ := newTestHandler(t)
	router := newRouter(h)

	_, err := store.Insert(context.Background(), Product{OrgID: "org-1", Name: "Widget", Active: true})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products", "org-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, store.listHits)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/products", "org-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, store.listHits, "second read must hit the cache")
}

func TestWriteInvalidatesCachedList(t *testing.T) {
	h, store, _ := newTestHandler(t)
	router := newRouter(h)

	_, err := store.Insert(context.Background(), Product{OrgID: "org-1", Name: "Widget", Active: true})
	require.NoError(t, err)

	doRequest(t, router, http.MethodGet, "/api/v1/products", "org-1", "")
	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", "org-1", `{"name":"Gadget","unitPrice":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/products", "org-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Data []Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 2)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newRouter(h)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", "org-1", `{"name":"","unitPrice":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/products", "org-1", `{"name":"X","unitPrice":-4}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingOrgIsForbidden(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newRouter(h)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products", "", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}
