package entry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPVerifierSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/receipts/0xabc" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"confirmed":true,"recipient":"0xworld","value":42,"network_id":10143,"status":"success"}`))
	}))
	defer ts.Close()

	v := NewHTTPVerifier(ts.URL, time.Second)
	res, err := v.Verify(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.Confirmed || res.Value != 42 || res.NetworkID != 10143 {
		t.Errorf("Unexpected verification: %+v", res)
	}
}

func TestHTTPVerifierUnknownReceipt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	v := NewHTTPVerifier(ts.URL, time.Second)
	res, err := v.Verify(context.Background(), "0xmissing")
	if err != nil {
		t.Fatalf("An unknown receipt is an answer, not an error: %v", err)
	}
	if res.Confirmed {
		t.Error("Unknown receipt must not be confirmed")
	}
}

// TestHTTPVerifierRetriesOnce verifies a transient failure is retried
// exactly once and then succeeds.
func TestHTTPVerifierRetriesOnce(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"confirmed":true,"recipient":"0xworld","value":1,"network_id":1,"status":"success"}`))
	}))
	defer ts.Close()

	v := NewHTTPVerifier(ts.URL, time.Second)
	res, err := v.Verify(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Verify failed after retry: %v", err)
	}
	if !res.Confirmed {
		t.Error("Expected confirmed result on retry")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", got)
	}
}

func TestHTTPVerifierPersistentFailure(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	v := NewHTTPVerifier(ts.URL, time.Second)
	_, err := v.Verify(context.Background(), "0xabc")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected the bounded 2 attempts, got %d", got)
	}
}

func TestHTTPVerifierMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confirmed": tru`))
	}))
	defer ts.Close()

	v := NewHTTPVerifier(ts.URL, time.Second)
	_, err := v.Verify(context.Background(), "0xabc")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Expected ErrUpstreamUnavailable for garbage body, got %v", err)
	}
}

func TestHTTPVerifierCanceledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewHTTPVerifier(ts.URL, time.Second)
	if _, err := v.Verify(ctx, "0xabc"); err == nil {
		t.Error("Expected error for canceled context")
	}
}
