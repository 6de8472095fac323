package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allylab/notify/internal/dispatcher"
	"github.com/allylab/notify/internal/domain"
	"github.com/allylab/notify/internal/registry"
)

// Tester sends a sample payload to a single destination.
type Tester interface {
	TestDestination(ctx context.Context, id string) dispatcher.TestResult
}

// Emitter queues a notification event for asynchronous fan-out.
type Emitter interface {
	Emit(ctx context.Context, event domain.NotificationEvent) error
}

// HealthChecker provides analytics store health for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	registry *registry.Registry
	tester   Tester
	emitter  Emitter
	health   HealthChecker
	now      func() time.Time
}

func NewHandler(reg *registry.Registry, tester Tester, emitter Emitter) *Handler {
	return &Handler{
		registry: reg,
		tester:   tester,
		emitter:  emitter,
		now:      time.Now,
	}
}

// WithHealthChecker sets the analytics health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(hc HealthChecker) *Handler {
	h.health = hc
	return h
}

// WithClock overrides the time source. Used in tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.healthCheck(w, r)

	case path == "/destinations" && r.Method == http.MethodPost:
		h.createDestination(w, r)

	case path == "/destinations" && r.Method == http.MethodGet:
		h.listDestinations(w, r)

	case strings.HasSuffix(path, "/test") && r.Method == http.MethodPost:
		h.testDestination(w, r)

	case strings.HasPrefix(path, "/destinations/") && r.Method == http.MethodGet:
		h.getDestination(w, r)

	case strings.HasPrefix(path, "/destinations/") && r.Method == http.MethodPatch:
		h.updateDestination(w, r)

	case strings.HasPrefix(path, "/destinations/") && r.Method == http.MethodDelete:
		h.deleteDestination(w, r)

	case path == "/events" && r.Method == http.MethodPost:
		h.triggerEvent(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.health.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["analytics"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["analytics"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createDestination(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateCreateDestination(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dest, err := h.registry.Create(registry.CreateParams{
		Name:    req.Name,
		URL:     req.URL,
		Type:    domain.DestinationType(req.Type),
		Events:  toEvents(req.Events),
		Secret:  req.Secret,
		Enabled: req.Enabled,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, destinationResponse(dest))
}

func (h *Handler) listDestinations(w http.ResponseWriter, r *http.Request) {
	dests := h.registry.List()

	resp := ListDestinationsResponse{Destinations: make([]DestinationResponse, len(dests))}
	for i, dest := range dests {
		resp.Destinations[i] = destinationResponse(dest)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := destinationID(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	dest, err := h.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "destination not found")
		return
	}

	writeJSON(w, http.StatusOK, destinationResponse(dest))
}

func (h *Handler) updateDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := destinationID(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req UpdateDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateUpdateDestination(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := registry.UpdateParams{
		Name:    req.Name,
		URL:     req.URL,
		Secret:  req.Secret,
		Enabled: req.Enabled,
	}
	if req.Type != nil {
		t := domain.DestinationType(*req.Type)
		params.Type = &t
	}
	if req.Events != nil {
		params.Events = toEvents(req.Events)
	}

	dest, err := h.registry.Update(id, params)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "destination not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, destinationResponse(dest))
}

func (h *Handler) deleteDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := destinationID(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if !h.registry.Delete(id) {
		writeError(w, http.StatusNotFound, "destination not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) testDestination(w http.ResponseWriter, r *http.Request) {
	// Extract destination ID from path: /destinations/{id}/test
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "destinations" || parts[2] != "test" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	result := h.tester.TestDestination(r.Context(), parts[1])

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
		if result.Error == "Destination not found" {
			status = http.StatusNotFound
		}
	}

	writeJSON(w, status, result)
}

func (h *Handler) triggerEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if !domain.Event(req.Event).Known() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event %q", req.Event))
		return
	}

	event := domain.NotificationEvent{
		ID:      uuid.New(),
		Kind:    domain.Event(req.Event),
		Data:    req.Data,
		FiredAt: h.now().UTC(),
	}

	if err := h.emitter.Emit(r.Context(), event); err != nil {
		log.Printf("api: emit event error: %v", err)
		writeError(w, http.StatusServiceUnavailable, "event queue full")
		return
	}

	writeJSON(w, http.StatusAccepted, TriggerResponse{Accepted: true})
}

// destinationID extracts the ID from a /destinations/{id} path.
func destinationID(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "destinations" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func toEvents(events []string) []domain.Event {
	out := make([]domain.Event, len(events))
	for i, e := range events {
		out[i] = domain.Event(e)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
