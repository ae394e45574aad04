package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/id"
)

// RecordDelivery appends a ledger row.
func (s *Store) RecordDelivery(ctx context.Context, d *delivery.Delivery) error {
	if _, err := s.mdb.NewInsert(toDeliveryModel(d)).Exec(ctx); err != nil {
		return fmt.Errorf("sailhook/mongo: record delivery: %w", err)
	}
	return nil
}

// GetDelivery returns a row of webhookID's ledger.
func (s *Store) GetDelivery(ctx context.Context, webhookID, delID id.ID) (*delivery.Delivery, error) {
	var m deliveryModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": delID.String(), "webhook_id": webhookID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, sailhook.ErrDeliveryNotFound
		}

		return nil, fmt.Errorf("sailhook/mongo: get delivery: %w", err)
	}

	return fromDeliveryModel(&m)
}

// ListDeliveries returns a page of webhookID's ledger, newest first.
func (s *Store) ListDeliveries(ctx context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel

	if err := s.mdb.NewFind(&models).
		Filter(deliveryFilter(webhookID, opts.Status)).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		Skip(int64(opts.Offset)).
		Limit(int64(opts.Limit)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("sailhook/mongo: list deliveries: %w", err)
	}

	result := make([]*delivery.Delivery, 0, len(models))

	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}

// CountDeliveries counts webhookID's rows, optionally by status.
func (s *Store) CountDeliveries(ctx context.Context, webhookID id.ID, status *int) (int64, error) {
	count, err := s.mdb.NewFind((*deliveryModel)(nil)).
		Filter(deliveryFilter(webhookID, status)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("sailhook/mongo: count deliveries: %w", err)
	}

	return count, nil
}

func deliveryFilter(webhookID id.ID, status *int) bson.M {
	filter := bson.M{"webhook_id": webhookID.String()}
	if status != nil {
		filter["status"] = *status
	}
	return filter
}
