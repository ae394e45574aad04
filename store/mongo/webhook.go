package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/webhook"
)

// CreateWebhook persists a new webhook.
func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	if _, err := s.mdb.NewInsert(toWebhookModel(wh)).Exec(ctx); err != nil {
		return fmt.Errorf("sailhook/mongo: create webhook: %w", err)
	}
	return nil
}

// GetWebhook returns a webhook by ID within teamID.
func (s *Store) GetWebhook(ctx context.Context, teamID string, whID id.ID) (*webhook.Webhook, error) {
	var m webhookModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": whID.String(), "team_id": teamID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, sailhook.ErrWebhookNotFound
		}

		return nil, fmt.Errorf("sailhook/mongo: get webhook: %w", err)
	}

	return fromWebhookModel(&m)
}

// UpdateWebhook replaces the document when teamID owns it.
func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "team_id": m.TeamID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sailhook/mongo: update webhook: %w", err)
	}

	if res.MatchedCount() == 0 {
		return sailhook.ErrWebhookNotFound
	}

	return nil
}

// DeleteWebhook removes a webhook owned by teamID.
func (s *Store) DeleteWebhook(ctx context.Context, teamID string, whID id.ID) error {
	res, err := s.mdb.NewDelete((*webhookModel)(nil)).
		Filter(bson.M{"_id": whID.String(), "team_id": teamID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sailhook/mongo: delete webhook: %w", err)
	}

	if res.DeletedCount() == 0 {
		return sailhook.ErrWebhookNotFound
	}

	return nil
}

// ListWebhooks returns the team's webhooks, newest first.
func (s *Store) ListWebhooks(ctx context.Context, teamID string, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	var models []webhookModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"team_id": teamID}).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("sailhook/mongo: list webhooks: %w", err)
	}

	return fromWebhookModels(models)
}

// ListActiveForEvent matches on the multikey {team_id, is_active, events}
// index; an equality match on an array field tests membership.
func (s *Store) ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*webhook.Webhook, error) {
	var models []webhookModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"team_id":   teamID,
			"is_active": true,
			"events":    string(eventType),
		}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("sailhook/mongo: list active for event: %w", err)
	}

	return fromWebhookModels(models)
}

func fromWebhookModels(models []webhookModel) ([]*webhook.Webhook, error) {
	result := make([]*webhook.Webhook, 0, len(models))

	for i := range models {
		wh, err := fromWebhookModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, wh)
	}

	return result, nil
}
