package document

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/tenant"
)

func newTestRouter(submitter *SubmissionClient) (*chi.Mux, *fakeStore) {
	store := newFakeStore()
	svc := NewService(store, nil, nil, submitter)
	handler := NewHandler(svc)

	r := chi.NewRouter()
	resolver := tenant.NewResolver("X-Org-ID", true)
	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Use(resolver.Middleware)
		handler.Routes(r)
	})
	return r, store
}

const createBody = `{
  "supplierOrCustomerId": "sup-7",
  "contactEmail": "ap@example.com",
  "paymentTerm": "NET_30",
  "documentDate": "2025-03-10",
  "expectedDate": "2025-04-09",
  "billingAddress": {"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701", "country": "US"},
  "shippingAddress": {"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701", "country": "US"},
  "items": [
    {"productName": "Widget", "quantity": 2, "unitPrice": 10.005},
    {"productName": "Gadget", "quantity": "1", "unitPrice": "5.004"}
  ],
  "subtotal": 999,
  "taxRate": 8.25,
  "discountRate": 0,
  "grandTotal": 999
}`

func doRequest(t *testing.T, r http.Handler, method, path, org, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if org != "" {
		req.Header.Set("X-Org-ID", org)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeDoc(t *testing.T, rec *httptest.ResponseRecorder) Document {
	t.Helper()
	var payload struct {
		Data Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Data
}

func TestCreateAndGetOverHTTP(t *testing.T) {
	r, _ := newTestRouter(nil)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice", "org-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeDoc(t, rec)
	require.Equal(t, TypeInvoice, created.Type)
	require.Equal(t, "draft", created.Status)
	// String quantities and prices coerce; derived fields come from the engine.
	require.Equal(t, 25.01, created.Subtotal)
	require.Equal(t, 2.06, created.TaxAmount)
	require.Equal(t, 27.07, created.GrandTotal)

	rec = doRequest(t, r, http.MethodGet, "/api/v1/documents/invoice/"+created.ID.String(), "org-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeDoc(t, rec)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, created.GrandTotal, got.GrandTotal)
}

func TestGetWrongTypeIs404(t *testing.T) {
	r, _ := newTestRouter(nil)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice", "org-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeDoc(t, rec)

	rec = doRequest(t, r, http.MethodGet, "/api/v1/documents/bill/"+created.ID.String(), "org-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownTypeIs404(t *testing.T) {
	r, _ := newTestRouter(nil)
	rec := doRequest(t, r, http.MethodGet, "/api/v1/documents/receipt", "org-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingOrgIs403(t *testing.T) {
	r, _ := newTestRouter(nil)
	rec := doRequest(t, r, http.MethodGet, "/api/v1/documents/invoice", "", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCrossOrgGetIs404(t *testing.T) {
	r, _ := newTestRouter(nil)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/bill", "org-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeDoc(t, rec)

	rec = doRequest(t, r, http.MethodGet, "/api/v1/documents/bill/"+created.ID.String(), "org-2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusPatchOverHTTP(t *testing.T) {
	r, _ := newTestRouter(nil)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/purchase", "org-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeDoc(t, rec)

	rec = doRequest(t, r, http.MethodPatch, "/api/v1/documents/purchase/"+created.ID.String()+"/status", "org-1", `{"status":"ORDERED"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "ordered", decodeDoc(t, rec).Status)

	rec = doRequest(t, r, http.MethodPatch, "/api/v1/documents/purchase/"+created.ID.String()+"/status", "org-1", `{"status":"paid"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWithStatusFilter(t *testing.T) {
	r, _ := newTestRouter(nil)

	for range 3 {
		rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice", "org-1", createBody)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/documents/invoice?status=draft", "org-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	rec = doRequest(t, r, http.MethodGet, "/api/v1/documents/invoice?status=ordered", "org-1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code, "purchase status on invoice listing")
}

func TestSubmitOverHTTP(t *testing.T) {
	received := 0
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		received++
		require.NotEmpty(t, req.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer remote.Close()

	r, _ := newTestRouter(NewSubmissionClient(remote.URL, "shh"))

	rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice", "org-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeDoc(t, rec)

	rec = doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice/"+created.ID.String()+"/submit", "org-1", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Equal(t, 1, received)
}

func TestSubmitWithoutEndpointIs503(t *testing.T) {
	r, _ := newTestRouter(nil)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice", "org-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeDoc(t, rec)

	rec = doRequest(t, r, http.MethodPost, "/api/v1/documents/invoice/"+created.ID.String()+"/submit", "org-1", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
