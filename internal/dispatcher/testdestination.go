package dispatcher

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/allylab/notify/internal/domain"
	"github.com/allylab/notify/internal/format"
)

// TestResult is the immediate outcome of a single-shot test delivery.
type TestResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// sampleEventData is the fixed payload sent by TestDestination.
func sampleEventData() domain.EventData {
	pages := 5
	return domain.EventData{
		ScanURL:      "https://example.com",
		Score:        87,
		TotalIssues:  12,
		Critical:     0,
		Serious:      3,
		Moderate:     5,
		Minor:        4,
		PagesScanned: &pages,
	}
}

// TestDestination sends one synthetic delivery to the destination with no
// retry and no status mutation. It is a diagnostic: the outcome is returned
// to the caller instead of being recorded on the destination.
func (d *Dispatcher) TestDestination(ctx context.Context, id string) TestResult {
	dest, err := d.store.Get(id)
	if err != nil {
		return TestResult{Success: false, Error: "Destination not found"}
	}

	body, err := format.Payload(dest.Type, domain.EventScanCompleted, sampleEventData(), d.now())
	if err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}

	secret := ""
	if dest.Type == domain.TypeGeneric {
		secret = dest.Secret
	}

	res := d.sender.Send(ctx, Request{
		URL:        dest.URL,
		Body:       body,
		Event:      domain.EventScanCompleted,
		DeliveryID: uuid.NewString(),
		Secret:     secret,
		Timeout:    d.timeout,
	})

	if res.Error != nil {
		log.Printf("dispatcher: destination=%s test delivery failed: %v", dest.ID, res.Error)
		msg := res.Error.Error()
		if msg == "" {
			msg = "Network error"
		}
		return TestResult{Success: false, Error: msg}
	}

	result := TestResult{
		Success:    res.IsSuccess(),
		StatusCode: res.StatusCode,
	}
	if !result.Success {
		result.Error = fmt.Sprintf("unexpected status %d", res.StatusCode)
	}
	return result
}
