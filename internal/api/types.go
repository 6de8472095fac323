package api

import (
	"time"

	"github.com/allylab/notify/internal/domain"
)

type CreateDestinationRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Type    string   `json:"type,omitempty"` // auto-detected from url when omitted
	Events  []string `json:"events"`
	Secret  string   `json:"secret,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"` // default true
}

// UpdateDestinationRequest is a partial update; absent fields are left
// unchanged.
type UpdateDestinationRequest struct {
	Name    *string  `json:"name,omitempty"`
	URL     *string  `json:"url,omitempty"`
	Type    *string  `json:"type,omitempty"`
	Events  []string `json:"events,omitempty"`
	Secret  *string  `json:"secret,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}

// DestinationResponse never carries the signing secret, only whether one is
// set.
type DestinationResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Type          string   `json:"type"`
	Events        []string `json:"events"`
	Enabled       bool     `json:"enabled"`
	HasSecret     bool     `json:"has_secret"`
	CreatedAt     string   `json:"created_at"`
	LastTriggered string   `json:"last_triggered,omitempty"`
	LastStatus    string   `json:"last_status,omitempty"`
}

type ListDestinationsResponse struct {
	Destinations []DestinationResponse `json:"destinations"`
}

type TriggerRequest struct {
	Event string           `json:"event"`
	Data  domain.EventData `json:"data"`
}

type TriggerResponse struct {
	Accepted bool `json:"accepted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func destinationResponse(dest domain.Destination) DestinationResponse {
	events := make([]string, len(dest.Events))
	for i, e := range dest.Events {
		events[i] = string(e)
	}

	resp := DestinationResponse{
		ID:         dest.ID,
		Name:       dest.Name,
		URL:        dest.URL,
		Type:       string(dest.Type),
		Events:     events,
		Enabled:    dest.Enabled,
		HasSecret:  dest.Secret != "",
		CreatedAt:  formatTime(dest.CreatedAt),
		LastStatus: string(dest.LastStatus),
	}
	if dest.LastTriggered != nil {
		resp.LastTriggered = formatTime(*dest.LastTriggered)
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
