package visitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"visitorlog/internal/store"
)

// DefaultKey is the slot holding the visitor sequence.
const DefaultKey = "visitors"

// Repository persists the full visitor sequence in a single slot.
// Every write replaces the whole sequence.
type Repository struct {
	slots store.Slots
	key   string
	log   logrus.FieldLogger
}

// NewRepository creates a repo over the given slot key.
func NewRepository(slots store.Slots, key string, log logrus.FieldLogger) *Repository {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Repository{slots: slots, key: key, log: log.WithField("component", "visitor_repo")}
}

// LoadAll returns the stored sequence in stored order. An absent or
// malformed slot yields an empty sequence; only backend failures are errors.
func (r *Repository) LoadAll(ctx context.Context) ([]Record, error) {
	raw, ok, err := r.slots.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load visitors: %w", err)
	}
	if !ok || raw == "" {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		r.log.WithError(err).Warn("visitors slot is malformed, treating as empty")
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// SaveAll overwrites the slot with records.
func (r *Repository) SaveAll(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode visitors: %w", err)
	}
	if err := r.slots.Set(ctx, r.key, string(b)); err != nil {
		return fmt.Errorf("save visitors: %w", err)
	}
	return nil
}
