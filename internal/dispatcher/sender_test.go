package dispatcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/allylab/notify/internal/domain"
)

func TestHTTPSender_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender()
	result := sender.Send(context.Background(), Request{
		URL:        server.URL,
		Body:       []byte(`{"event":"scan.completed"}`),
		Event:      domain.EventScanCompleted,
		DeliveryID: "del-1",
		Timeout:    5 * time.Second,
	})

	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
	if result.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestHTTPSender_RequestHeaders(t *testing.T) {
	var gotHeaders http.Header
	var gotMethod string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	body := []byte(`{"event":"critical.found","data":{"critical":2}}`)

	sender := NewHTTPSender()
	sender.Send(context.Background(), Request{
		URL:        server.URL,
		Body:       body,
		Event:      domain.EventCriticalFound,
		DeliveryID: "delivery-123",
		Secret:     "my-secret",
		Timeout:    5 * time.Second,
	})

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if ev := gotHeaders.Get("X-AllyLab-Event"); ev != "critical.found" {
		t.Errorf("X-AllyLab-Event = %q, want critical.found", ev)
	}
	if id := gotHeaders.Get("X-AllyLab-Delivery"); id != "delivery-123" {
		t.Errorf("X-AllyLab-Delivery = %q, want delivery-123", id)
	}

	// Signature must verify against the exact transmitted bytes.
	sig := gotHeaders.Get("X-AllyLab-Signature")
	if sig == "" {
		t.Fatal("X-AllyLab-Signature should be set when a secret is configured")
	}
	if !VerifySignature("my-secret", gotBody, sig) {
		t.Error("signature does not verify against the received body")
	}
}

func TestHTTPSender_NoSignatureWithoutSecret(t *testing.T) {
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender()
	sender.Send(context.Background(), Request{
		URL:        server.URL,
		Body:       []byte(`{}`),
		Event:      domain.EventScanCompleted,
		DeliveryID: "del-2",
		Timeout:    5 * time.Second,
	})

	if sig := gotHeaders.Get("X-AllyLab-Signature"); sig != "" {
		t.Errorf("X-AllyLab-Signature = %q, want unset", sig)
	}
}

func TestHTTPSender_BodyIsTransmittedVerbatim(t *testing.T) {
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	body := []byte(`{"event":"scan.completed","timestamp":"2024-03-01T12:00:00Z","data":{"score":95}}`)

	sender := NewHTTPSender()
	sender.Send(context.Background(), Request{
		URL:        server.URL,
		Body:       body,
		Event:      domain.EventScanCompleted,
		DeliveryID: "del-3",
		Timeout:    5 * time.Second,
	})

	if string(gotBody) != string(body) {
		t.Errorf("body = %s, want %s", gotBody, body)
	}
	if !json.Valid(gotBody) {
		t.Error("transmitted body should be valid JSON")
	}
}

func TestHTTPSender_TransportError(t *testing.T) {
	sender := NewHTTPSender()
	result := sender.Send(context.Background(), Request{
		URL:        "http://127.0.0.1:1", // nothing listens here
		Body:       []byte(`{}`),
		Event:      domain.EventScanCompleted,
		DeliveryID: "del-4",
		Timeout:    time.Second,
	})

	if result.Error == nil {
		t.Fatal("expected a transport error")
	}
	if !result.IsRetryable() {
		t.Error("transport errors must be retryable")
	}
}

func TestHTTPSender_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender()
	result := sender.Send(context.Background(), Request{
		URL:        server.URL,
		Body:       []byte(`{}`),
		Event:      domain.EventScanCompleted,
		DeliveryID: "del-5",
		Timeout:    50 * time.Millisecond,
	})

	if result.Error == nil {
		t.Fatal("expected a timeout error")
	}
	if !result.IsRetryable() {
		t.Error("timeouts must be retryable")
	}
}
