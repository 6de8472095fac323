package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/allylab/notify/internal/domain"
)

// DefaultRequestTimeout bounds a single HTTP attempt so a hung destination
// cannot stall the dispatch. Distinct from the backoff delay.
const DefaultRequestTimeout = 10 * time.Second

// Request describes one HTTP delivery attempt.
type Request struct {
	URL        string
	Body       []byte
	Event      domain.Event
	DeliveryID string
	// Secret, when non-empty, adds the X-AllyLab-Signature header.
	Secret  string
	Timeout time.Duration
}

// Result is the outcome of one attempt.
type Result struct {
	StatusCode int
	Error      error
	Duration   time.Duration
}

// IsSuccess reports a 2xx response with no transport error.
func (r Result) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRetryable classifies the outcome: transport failures, 429 and any 5xx
// are retryable; every other status is fatal.
func (r Result) IsRetryable() bool {
	if r.Error != nil {
		return true
	}
	if r.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return r.StatusCode >= 500
}

// Sender performs one webhook POST.
type Sender interface {
	Send(ctx context.Context, req Request) Result
}

type HTTPSender struct {
	client *http.Client
}

func NewHTTPSender() *HTTPSender {
	return &HTTPSender{client: &http.Client{}}
}

// Send posts the pre-rendered body. Headers: X-AllyLab-Event,
// X-AllyLab-Delivery, and X-AllyLab-Signature when a secret is configured.
func (s *HTTPSender) Send(ctx context.Context, req Request) Result {
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return Result{Error: fmt.Errorf("create request: %w", err), Duration: time.Since(start)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-AllyLab-Event", string(req.Event))
	httpReq.Header.Set("X-AllyLab-Delivery", req.DeliveryID)
	if req.Secret != "" {
		httpReq.Header.Set("X-AllyLab-Signature", SignatureHeader(req.Secret, req.Body))
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Result{Error: fmt.Errorf("send: %w", err), Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	return Result{StatusCode: resp.StatusCode, Duration: time.Since(start)}
}
