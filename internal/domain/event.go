package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event identifies an occurrence in the scanning pipeline that can trigger
// notifications. The set is open: unknown kinds still dispatch and render
// with a generic title.
type Event string

const (
	EventScanCompleted Event = "scan.completed"
	EventScanFailed    Event = "scan.failed"
	EventScoreDropped  Event = "score.dropped"
	EventCriticalFound Event = "critical.found"
)

// KnownEvents returns the built-in event kinds.
func KnownEvents() []Event {
	return []Event{
		EventScanCompleted,
		EventScanFailed,
		EventScoreDropped,
		EventCriticalFound,
	}
}

// Known reports whether e is one of the built-in event kinds.
func (e Event) Known() bool {
	switch e {
	case EventScanCompleted, EventScanFailed, EventScoreDropped, EventCriticalFound:
		return true
	}
	return false
}

// EventData carries the event-specific payload fields. All fields are
// optional; zero values are the defaulting contract (numbers render as 0,
// strings as explicit placeholders, never as null). PagesScanned is a
// pointer because presence changes rendering, not just the value.
type EventData struct {
	ScanURL       string `json:"scanUrl,omitempty"`
	Score         int    `json:"score"`
	PreviousScore int    `json:"previousScore,omitempty"`
	TotalIssues   int    `json:"totalIssues"`
	Critical      int    `json:"critical"`
	Serious       int    `json:"serious"`
	Moderate      int    `json:"moderate"`
	Minor         int    `json:"minor"`
	PagesScanned  *int   `json:"pagesScanned,omitempty"`
	Error         string `json:"error,omitempty"`
}

// DisplayURL returns the scan URL or "N/A" when absent.
func (d EventData) DisplayURL() string {
	if d.ScanURL == "" {
		return "N/A"
	}
	return d.ScanURL
}

// DisplayError returns the error description or "Unknown error" when absent.
func (d EventData) DisplayError() string {
	if d.Error == "" {
		return "Unknown error"
	}
	return d.Error
}

// NotificationEvent is what producers (the scan pipeline, the API) put on the
// event bus for the dispatcher to fan out.
type NotificationEvent struct {
	ID      uuid.UUID
	Kind    Event
	Data    EventData
	FiredAt time.Time
}
