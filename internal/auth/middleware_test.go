package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/tenant"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, mutate func(b *jwt.Builder)) string {
	t.Helper()
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject("user-1").
		Issuer("https://id.example.com").
		Audience([]string{"billing-api"}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Claim(OrgClaim, "org-42")
	if mutate != nil {
		mutate(builder)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func newTestVerifier() *TokenVerifier {
	return NewTokenVerifier([]byte(testSecret), "https://id.example.com", "billing-api", 30*time.Second)
}

func TestVerifyValidToken(t *testing.T) {
	claims, err := newTestVerifier().Verify(signToken(t, nil))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "org-42", claims.OrgID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	raw := signToken(t, func(b *jwt.Builder) {
		b.Expiration(time.Now().Add(-time.Hour))
	})
	_, err := newTestVerifier().Verify(raw)
	require.Error(t, err)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	raw := signToken(t, func(b *jwt.Builder) {
		b.Issuer("https://attacker.example.com")
	})
	_, err := newTestVerifier().Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Subject("user-1").
		Issuer("https://id.example.com").
		Audience([]string{"billing-api"}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("another-secret-another-secret!!!")))
	require.NoError(t, err)

	_, err = newTestVerifier().Verify(string(signed))
	require.Error(t, err)
}

func TestRequireAuthSetsIdentityAndOrg(t *testing.T) {
	m := Middleware{Verifier: newTestVerifier()}

	var gotUser, gotOrg string
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
		gotOrg, _ = tenant.OrgFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-1", gotUser)
	require.Equal(t, "org-42", gotOrg)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	m := Middleware{Verifier: newTestVerifier()}
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatePassesAnonymousThrough(t *testing.T) {
	m := Middleware{Verifier: newTestVerifier()}
	var authed bool
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authed = common.UserID(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, authed)
}
