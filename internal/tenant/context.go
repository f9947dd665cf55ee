// Package tenant scopes every request to one organization. The org id is the
// partition key for storage rows, cache keys, and rate limits.
package tenant

import (
	"context"
	"strings"
)

type contextKey string

const orgContextKey contextKey = "tenant.org-id"

// WithOrg stores the organization identifier inside the context.
func WithOrg(ctx context.Context, orgID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, orgContextKey, orgID)
}

// OrgFromContext extracts the organization identifier from the context.
func OrgFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	orgID, ok := ctx.Value(orgContextKey).(string)
	if !ok {
		return "", false
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", false
	}
	return orgID, true
}

// PrefixKey namespaces a cache or queue key per organization.
func PrefixKey(orgID, key string) string {
	if orgID == "" {
		return key
	}
	return "org:" + orgID + ":" + key
}
