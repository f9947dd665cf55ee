package tenant

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-billing/internal/common"
)

// Resolver derives the request's organization. The verified token claim is
// authoritative; the header fallback exists for local development where
// requests carry no token.
type Resolver struct {
	HeaderName  string
	AllowHeader bool
}

// NewResolver configures a resolver. When headerName is empty "X-Org-ID" is
// used.
func NewResolver(headerName string, allowHeader bool) *Resolver {
	if headerName == "" {
		headerName = "X-Org-ID"
	}
	return &Resolver{HeaderName: headerName, AllowHeader: allowHeader}
}

// Middleware injects the resolved org into the context when one is found.
// It never rejects; see RequireOrg for enforcement.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	if rv == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := OrgFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		if rv.AllowHeader {
			if orgID := strings.TrimSpace(r.Header.Get(rv.HeaderName)); orgID != "" {
				r = r.WithContext(WithOrg(r.Context(), orgID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOrg rejects requests that reached a scoped route without an
// organization in context.
func RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := OrgFromContext(r.Context()); !ok {
			common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
