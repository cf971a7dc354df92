package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventLogHandler appends consumed training events to training_event_log.
// Redelivered records are ignored, keyed by topic, partition and offset.
type EventLogHandler struct {
	pool *pgxpool.Pool
}

// NewEventLogHandler constructs a handler backed by the provided pool.
func NewEventLogHandler(pool *pgxpool.Pool) *EventLogHandler {
	return &EventLogHandler{pool: pool}
}

// Handle stores msg. Payloads that are not JSON objects are rejected.
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	trainingID, err := trainingIDFrom(msg.Payload)
	if err != nil {
		return fmt.Errorf("%s payload: %w", msg.EventType, err)
	}

	_, err = h.pool.Exec(ctx,
		`INSERT INTO training_event_log (topic, partition, record_offset, event_type, tenant_id, training_id, schema_id, schema_subject, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.EventType,
		msg.TenantID,
		nullIfEmpty(trainingID),
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}

func trainingIDFrom(payload json.RawMessage) (string, error) {
	var envelope struct {
		TrainingID string `json:"training_id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", err
	}
	return envelope.TrainingID, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
