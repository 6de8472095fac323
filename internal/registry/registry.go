// Package registry holds the in-memory destination store. The registry is
// passed explicitly to its consumers; there is no process-wide state.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allylab/notify/internal/domain"
)

// ErrNotFound is returned for operations against an unknown destination id.
var ErrNotFound = errors.New("destination not found")

type Registry struct {
	mu           sync.RWMutex
	destinations map[string]*domain.Destination
	now          func() time.Time
}

type Option func(*Registry)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		destinations: make(map[string]*domain.Destination),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateParams carries the fields for registering a destination. Type is
// optional; when empty it is derived from the URL host.
type CreateParams struct {
	Name    string
	URL     string
	Type    domain.DestinationType
	Events  []domain.Event
	Secret  string
	Enabled *bool // nil = true
}

func (r *Registry) Create(p CreateParams) (domain.Destination, error) {
	if p.Name == "" {
		return domain.Destination{}, fmt.Errorf("name is required")
	}
	if p.URL == "" {
		return domain.Destination{}, fmt.Errorf("url is required")
	}
	if err := validateURL(p.URL); err != nil {
		return domain.Destination{}, fmt.Errorf("invalid url: %w", err)
	}
	events := dedupeEvents(p.Events)
	if len(events) == 0 {
		return domain.Destination{}, fmt.Errorf("at least one event is required")
	}

	destType := p.Type
	if destType == "" {
		destType = domain.DetectType(p.URL)
	} else if !destType.Valid() {
		return domain.Destination{}, fmt.Errorf("invalid type %q", destType)
	}

	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}

	dest := &domain.Destination{
		ID:        uuid.NewString(),
		Name:      p.Name,
		URL:       p.URL,
		Type:      destType,
		Events:    events,
		Enabled:   enabled,
		Secret:    p.Secret,
		CreatedAt: r.now().UTC(),
	}

	r.mu.Lock()
	r.destinations[dest.ID] = dest
	r.mu.Unlock()

	return clone(dest), nil
}

// UpdateParams carries a partial update; nil fields are left unchanged. A
// url change without an explicit Type re-derives the type from the new host.
type UpdateParams struct {
	Name    *string
	URL     *string
	Type    *domain.DestinationType
	Events  []domain.Event
	Secret  *string
	Enabled *bool
}

func (r *Registry) Update(id string, p UpdateParams) (domain.Destination, error) {
	if p.URL != nil {
		if *p.URL == "" {
			return domain.Destination{}, fmt.Errorf("url is required")
		}
		if err := validateURL(*p.URL); err != nil {
			return domain.Destination{}, fmt.Errorf("invalid url: %w", err)
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return domain.Destination{}, fmt.Errorf("invalid type %q", *p.Type)
	}
	if p.Name != nil && *p.Name == "" {
		return domain.Destination{}, fmt.Errorf("name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dest, ok := r.destinations[id]
	if !ok {
		return domain.Destination{}, ErrNotFound
	}

	if p.Name != nil {
		dest.Name = *p.Name
	}
	if p.URL != nil {
		dest.URL = *p.URL
		if p.Type == nil {
			dest.Type = domain.DetectType(dest.URL)
		}
	}
	if p.Type != nil {
		dest.Type = *p.Type
	}
	if p.Events != nil {
		events := dedupeEvents(p.Events)
		if len(events) == 0 {
			return domain.Destination{}, fmt.Errorf("at least one event is required")
		}
		dest.Events = events
	}
	if p.Secret != nil {
		dest.Secret = *p.Secret
	}
	if p.Enabled != nil {
		dest.Enabled = *p.Enabled
	}

	return clone(dest), nil
}

func (r *Registry) Get(id string) (domain.Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dest, ok := r.destinations[id]
	if !ok {
		return domain.Destination{}, ErrNotFound
	}
	return clone(dest), nil
}

// List returns all destinations ordered by creation time.
func (r *Registry) List() []domain.Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Destination, 0, len(r.destinations))
	for _, dest := range r.destinations {
		out = append(out, clone(dest))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete removes the destination and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.destinations[id]
	delete(r.destinations, id)
	return ok
}

// RecordDeliveryStatus writes the terminal outcome of a delivery onto the
// destination. Concurrent completions for different destinations do not
// contend beyond the registry lock; writes for the same destination are
// serialized so no update is lost.
func (r *Registry) RecordDeliveryStatus(id string, status domain.DeliveryStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dest, ok := r.destinations[id]
	if !ok {
		return ErrNotFound
	}
	triggered := at.UTC()
	dest.LastTriggered = &triggered
	dest.LastStatus = status
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func dedupeEvents(events []domain.Event) []domain.Event {
	seen := make(map[domain.Event]struct{}, len(events))
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func clone(dest *domain.Destination) domain.Destination {
	out := *dest
	out.Events = append([]domain.Event(nil), dest.Events...)
	if dest.LastTriggered != nil {
		t := *dest.LastTriggered
		out.LastTriggered = &t
	}
	return out
}
