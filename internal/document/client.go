package document

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-billing/internal/resilience"
)

// SubmissionClient posts finished documents to the remote system of record.
// Submissions carry an idempotency key derived from the document so the
// remote side can dedupe retried deliveries, and an HMAC signature when a
// shared secret is configured.
type SubmissionClient struct {
	Endpoint string
	Secret   string
	HTTP     resilience.HTTPClient
}

// NewSubmissionClient builds a client with retrying transport and a breaker
// scoped to the submission target.
func NewSubmissionClient(endpoint, secret string) *SubmissionClient {
	return &SubmissionClient{
		Endpoint: strings.TrimSpace(endpoint),
		Secret:   secret,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("document-submission"),
			MaxAttempts: 3,
		},
	}
}

// Submit delivers the document payload. Non-2xx responses are errors.
func (c *SubmissionClient) Submit(ctx context.Context, doc Document) error {
	if c == nil || strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("document: submission endpoint not configured")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("document: encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", submissionKey(doc))
	if c.Secret != "" {
		req.Header.Set("X-Signature", signPayload(c.Secret, body))
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("document: submission rejected with status %d", resp.StatusCode)
	}
	return nil
}

// submissionKey is stable for one document revision: retrying an unchanged
// document reuses the key, while an edited document submits under a new one.
func submissionKey(doc Document) string {
	sum := sha256.Sum256([]byte(doc.ID.String() + "|" + doc.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z")))
	return hex.EncodeToString(sum[:])
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
