package domain

import (
	"net/url"
	"strings"
	"time"
)

type DestinationType string

const (
	TypeGeneric DestinationType = "generic"
	TypeSlack   DestinationType = "slack"
	TypeTeams   DestinationType = "teams"
)

// Valid reports whether t is a supported destination type.
func (t DestinationType) Valid() bool {
	switch t {
	case TypeGeneric, TypeSlack, TypeTeams:
		return true
	}
	return false
}

// DeliveryStatus is the terminal outcome of the most recent delivery to a
// destination. Empty until the first delivery completes.
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Destination is a registered external endpoint subscribed to one or more
// events.
type Destination struct {
	ID      string
	Name    string
	URL     string
	Type    DestinationType
	Events  []Event
	Enabled bool

	// Secret is the HMAC signing secret. Only generic destinations sign
	// their payloads. Never serialized in API responses.
	Secret string

	CreatedAt     time.Time
	LastTriggered *time.Time
	LastStatus    DeliveryStatus
}

// SubscribedTo reports whether the destination subscribes to e.
func (d Destination) SubscribedTo(e Event) bool {
	for _, sub := range d.Events {
		if sub == e {
			return true
		}
	}
	return false
}

// DetectType derives the destination type from the webhook URL host:
// hooks.slack.com means Slack, office.com means Teams, anything else is a
// generic receiver.
func DetectType(rawURL string) DestinationType {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	switch {
	case strings.Contains(host, "hooks.slack.com"):
		return TypeSlack
	case strings.Contains(host, "office.com"):
		return TypeTeams
	default:
		return TypeGeneric
	}
}
