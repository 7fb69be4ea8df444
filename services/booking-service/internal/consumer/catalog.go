package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// TopicCatalogUpdated is published by the business service whenever hours,
// policy or services of a business change.
const TopicCatalogUpdated = "business.catalog.updated.v1"

// Evicter drops cached catalog data of one business.
type Evicter interface {
	Evict(ctx context.Context, businessID string) error
}

type catalogUpdated struct {
	BusinessID string `json:"business_id"`
}

// CatalogInvalidation evicts the cached catalog of the business named in the
// event payload.
func CatalogInvalidation(cache Evicter) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt catalogUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}
		if evt.BusinessID == "" {
			return fmt.Errorf("%s without business_id", msg.Topic)
		}
		return cache.Evict(ctx, evt.BusinessID)
	}
}
