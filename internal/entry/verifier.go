// Package entry gates world admission behind an externally verified
// proof-of-payment reference and enforces at-most-once use of any proof.
package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verification is the verifier's view of one proof reference.
type Verification struct {
	Confirmed bool   `json:"confirmed"`
	Recipient string `json:"recipient"`
	Value     int64  `json:"value"`
	NetworkID int64  `json:"network_id"`
	Status    string `json:"status"`
}

// Verifier resolves a proof reference to its on-chain effect. A transport
// or protocol failure is ErrUpstreamUnavailable territory and must never be
// reported as a proof rejection.
type Verifier interface {
	Verify(ctx context.Context, proofRef string) (Verification, error)
}

// ErrUpstreamUnavailable marks a verifier transport failure, distinct from
// any judgement about the proof itself.
var ErrUpstreamUnavailable = errors.New("verifier unavailable")

const (
	defaultVerifyTimeout = 5 * time.Second
	// One retry: a transient verifier hiccup should not bounce an admit,
	// but the call happens on the request path so we do not loop.
	verifyAttempts = 2
)

// HTTPVerifier fetches proof receipts from an external verification service
// over HTTP. Each attempt gets the same bounded timeout.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier creates a verifier against the given base URL. A zero
// timeout uses the default.
func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &HTTPVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Verify fetches the receipt for proofRef, retrying once on transport
// failure. Both attempts classify errors identically.
func (v *HTTPVerifier) Verify(ctx context.Context, proofRef string) (Verification, error) {
	var lastErr error
	for attempt := 0; attempt < verifyAttempts; attempt++ {
		res, err := v.fetch(ctx, proofRef)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Verification{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

func (v *HTTPVerifier) fetch(ctx context.Context, proofRef string) (Verification, error) {
	endpoint := v.baseURL + "/receipts/" + url.PathEscape(proofRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Verification{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Verification{}, err
	}
	defer resp.Body.Close()

	// An unknown receipt is a definitive answer, not an outage.
	if resp.StatusCode == http.StatusNotFound {
		return Verification{Confirmed: false, Status: "not_found"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Verification{}, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Verification{}, err
	}
	var out Verification
	if err := json.Unmarshal(body, &out); err != nil {
		return Verification{}, fmt.Errorf("malformed verifier response: %v", err)
	}
	return out, nil
}
