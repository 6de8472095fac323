package api

import (
	"fmt"
	"net/url"

	"github.com/allylab/notify/internal/domain"
)

func validateCreateDestination(req CreateDestinationRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}

	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	if err := validateWebhookURL(req.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if req.Type != "" && !domain.DestinationType(req.Type).Valid() {
		return fmt.Errorf("invalid type %q", req.Type)
	}

	if len(req.Events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	if err := validateEvents(req.Events); err != nil {
		return err
	}

	return nil
}

func validateUpdateDestination(req UpdateDestinationRequest) error {
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name is required")
	}

	if req.URL != nil {
		if *req.URL == "" {
			return fmt.Errorf("url is required")
		}
		if err := validateWebhookURL(*req.URL); err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
	}

	if req.Type != nil && !domain.DestinationType(*req.Type).Valid() {
		return fmt.Errorf("invalid type %q", *req.Type)
	}

	if req.Events != nil {
		if len(req.Events) == 0 {
			return fmt.Errorf("at least one event is required")
		}
		if err := validateEvents(req.Events); err != nil {
			return err
		}
	}

	return nil
}

func validateEvents(events []string) error {
	for _, e := range events {
		if !domain.Event(e).Known() {
			return fmt.Errorf("unknown event %q", e)
		}
	}
	return nil
}

func validateWebhookURL(rawURL string) error {
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
