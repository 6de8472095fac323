// webhook-receiver is a standalone endpoint for exercising the notification
// engine locally: it records every delivery, verifies signatures when SECRET
// is set, and can simulate failures to drive the retry path.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type request struct {
	Timestamp  string            `json:"timestamp"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Event      string            `json:"event,omitempty"`
	DeliveryID string            `json:"delivery_id,omitempty"`
	Signature  string            `json:"signature,omitempty"`
	Verified   *bool             `json:"verified,omitempty"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

type stats struct {
	Count        int64     `json:"count"`
	LastRequests []request `json:"last_requests"`
	Since        string    `json:"since"`
}

var (
	mu           sync.Mutex
	count        int64
	lastRequests []request
	since        time.Time
	maxStored    = 50

	secret string
	// failFirst makes the receiver answer failStatus for the first N
	// deliveries of each run, then succeed. Exercises retries.
	failFirst  int64
	failStatus = http.StatusInternalServerError
)

func main() {
	since = time.Now().UTC()
	secret = os.Getenv("SECRET")

	if v := os.Getenv("FAIL_FIRST"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid FAIL_FIRST %q", v)
		}
		failFirst = n
	}
	if v := os.Getenv("FAIL_STATUS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid FAIL_STATUS %q", v)
		}
		failStatus = n
	}

	addr := ":8080"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}

	http.HandleFunc("/hook", hookHandler)
	http.HandleFunc("/stats", statsHandler)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		count = 0
		lastRequests = nil
		since = time.Now().UTC()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "reset")
	})

	if secret != "" {
		log.Println("webhook-receiver: SECRET set, verifying signatures")
	}
	if failFirst > 0 {
		log.Printf("webhook-receiver: failing first %d deliveries with %d", failFirst, failStatus)
	}
	log.Printf("webhook-receiver listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func hookHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	headers := make(map[string]string)
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	req := request{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Method:     r.Method,
		Path:       r.URL.Path,
		Event:      r.Header.Get("X-AllyLab-Event"),
		DeliveryID: r.Header.Get("X-AllyLab-Delivery"),
		Signature:  r.Header.Get("X-AllyLab-Signature"),
		Headers:    headers,
		Body:       string(body),
	}

	if secret != "" {
		ok := verifySignature(req.Signature, body)
		req.Verified = &ok
		if !ok {
			log.Printf("hook rejected: bad signature %q", req.Signature)
			record(req)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"error":"bad signature"}`)
			return
		}
	}

	current := record(req)

	if failFirst > 0 && current <= failFirst {
		log.Printf("hook #%d: simulating failure (%d)", current, failStatus)
		w.WriteHeader(failStatus)
		fmt.Fprintln(w, `{"error":"simulated failure"}`)
		return
	}

	log.Printf("hook received #%d [%s]: %s", current, req.Event, string(body))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"received":%d}`, current)
}

func record(req request) int64 {
	mu.Lock()
	defer mu.Unlock()
	count++
	lastRequests = append(lastRequests, req)
	if len(lastRequests) > maxStored {
		lastRequests = lastRequests[len(lastRequests)-maxStored:]
	}
	return count
}

// verifySignature checks a "sha256=<hex>" header against the raw body.
func verifySignature(header string, body []byte) bool {
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(want))
}

func statsHandler(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	s := stats{
		Count:        count,
		LastRequests: lastRequests,
		Since:        since.Format(time.RFC3339),
	}
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
