package webhook

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/signature"
)

const maxNameLength = 255

// Service validates registry input and delegates persistence to a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a registry service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create registers a webhook for teamID. New webhooks are active and get a
// freshly generated signing secret.
func (svc *Service) Create(ctx context.Context, teamID string, in Input) (*Webhook, error) {
	if teamID == "" {
		return nil, &ValidationError{Field: "teamId", Message: "required"}
	}
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := validateURL(in.URL); err != nil {
		return nil, err
	}
	events, err := validateEvents(in.Events)
	if err != nil {
		return nil, err
	}

	wh := &Webhook{
		Entity:   entity.New(),
		ID:       id.NewWebhookID(),
		TeamID:   teamID,
		Name:     name,
		URL:      in.URL,
		Events:   events,
		IsActive: true,
		Secret:   signature.GenerateSecret(),
	}
	if err := svc.store.CreateWebhook(ctx, wh); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "webhook created",
		"webhook_id", wh.ID, "team_id", teamID, "events", wh.Events.Strings())
	return wh, nil
}

// Get returns the webhook if teamID owns it.
func (svc *Service) Get(ctx context.Context, teamID string, whID id.ID) (*Webhook, error) {
	return svc.store.GetWebhook(ctx, teamID, whID)
}

// Update applies the non-nil fields of p, re-validating each one.
func (svc *Service) Update(ctx context.Context, teamID string, whID id.ID, p Patch) (*Webhook, error) {
	wh, err := svc.store.GetWebhook(ctx, teamID, whID)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return wh, nil
	}

	if p.Name != nil {
		name, err := validateName(*p.Name)
		if err != nil {
			return nil, err
		}
		wh.Name = name
	}
	if p.URL != nil {
		if err := validateURL(*p.URL); err != nil {
			return nil, err
		}
		wh.URL = *p.URL
	}
	if p.Events != nil {
		events, err := validateEvents(*p.Events)
		if err != nil {
			return nil, err
		}
		wh.Events = events
	}
	if p.IsActive != nil {
		wh.IsActive = *p.IsActive
	}
	wh.Touch()

	if err := svc.store.UpdateWebhook(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

// Delete removes the webhook. Deleting an already deleted webhook returns
// the not-found error again.
func (svc *Service) Delete(ctx context.Context, teamID string, whID id.ID) error {
	if err := svc.store.DeleteWebhook(ctx, teamID, whID); err != nil {
		return err
	}
	svc.logger.InfoContext(ctx, "webhook deleted", "webhook_id", whID, "team_id", teamID)
	return nil
}

// List returns the team's webhooks, newest first.
func (svc *Service) List(ctx context.Context, teamID string, opts ListOpts) ([]*Webhook, error) {
	return svc.store.ListWebhooks(ctx, teamID, opts)
}

// ListActiveForEvent is the fan-out query used by the trigger.
func (svc *Service) ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*Webhook, error) {
	return svc.store.ListActiveForEvent(ctx, teamID, eventType)
}

// RotateSecret replaces the signing secret and returns the new one.
func (svc *Service) RotateSecret(ctx context.Context, teamID string, whID id.ID) (string, error) {
	wh, err := svc.store.GetWebhook(ctx, teamID, whID)
	if err != nil {
		return "", err
	}
	wh.Secret = signature.GenerateSecret()
	wh.Touch()
	if err := svc.store.UpdateWebhook(ctx, wh); err != nil {
		return "", err
	}
	return wh.Secret, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", &ValidationError{Field: "name", Message: "required"}
	case len(name) > maxNameLength:
		return "", &ValidationError{Field: "name", Message: "must be at most 255 characters"}
	}
	return name, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be http or https"}
	}
	return nil
}

func validateEvents(names []string) (event.Set, error) {
	if len(names) == 0 {
		return nil, &ValidationError{Field: "events", Message: "at least one event type required"}
	}
	set, err := event.ParseSet(names)
	if err != nil {
		return nil, &ValidationError{Field: "events", Message: err.Error()}
	}
	return set, nil
}

// ValidationError reports a rejected registry field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "webhook validation: " + e.Field + ": " + e.Message
}
