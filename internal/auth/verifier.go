// Package auth verifies bearer tokens issued by the identity service. This
// API never issues tokens itself; it only checks signatures and claims.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-billing/internal/common"
)

// OrgClaim is the private claim carrying the caller's organization.
const OrgClaim = "org_id"

// Claims are the verified facts this API cares about.
type Claims struct {
	UserID string
	OrgID  string
}

// TokenVerifier parses and validates HMAC-signed access tokens.
type TokenVerifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm

	now func() time.Time
}

// NewTokenVerifier builds a verifier pinned to HS256 unless overridden.
func NewTokenVerifier(secret []byte, issuer, audience string, skew time.Duration) *TokenVerifier {
	return &TokenVerifier{
		Secret:    secret,
		Issuer:    issuer,
		Audience:  audience,
		ClockSkew: skew,
		Algorithm: jwa.HS256,
		now:       time.Now,
	}
}

// Verify parses the raw token, checks the signature and registered claims,
// and returns the subject plus the organization claim.
func (v *TokenVerifier) Verify(raw string) (Claims, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.Secret))
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := v.validate(parsed); err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}

	claims := Claims{UserID: parsed.Subject()}
	if orgID, ok := parsed.Get(OrgClaim); ok {
		if s, ok := orgID.(string); ok {
			claims.OrgID = strings.TrimSpace(s)
		}
	}
	return claims, nil
}

func (v *TokenVerifier) validate(tok jwt.Token) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	clock := v.now
	if clock == nil {
		clock = time.Now
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(clock)),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token has no signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	algorithm := headers.Algorithm()
	if algorithm == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	return algorithm, nil
}
