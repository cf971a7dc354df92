package outbox

import "example.com/training/internal/events"

const trainingRecordedSchema = `{
  "type": "object",
  "title": "TrainingRecorded",
  "properties": {
    "training_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "workout_type": {"type": "string", "enum": ["RUN", "WLK", "SWM"]},
    "training_name": {"type": "string"},
    "started_at": {"type": "string", "format": "date-time"},
    "duration_h": {"type": "number", "exclusiveMinimum": 0},
    "distance_km": {"type": "number", "minimum": 0},
    "mean_speed_kmh": {"type": "number"},
    "calories_kcal": {"type": "number"},
    "message": {"type": "string"},
    "source": {"type": "string"},
    "version": {"type": "string"}
  },
  "required": ["training_id", "tenant_id", "user_id", "workout_type", "training_name", "started_at", "duration_h", "distance_km", "mean_speed_kmh", "calories_kcal", "message", "source", "version"],
  "additionalProperties": false
}`

const trainingStateChangedSchema = `{
  "type": "object",
  "title": "TrainingStateChanged",
  "properties": {
    "training_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "state": {"type": "string", "enum": ["pending", "synced", "failed"]},
    "occurred_at": {"type": "string", "format": "date-time"},
    "reason": {"type": "string"}
  },
  "required": ["training_id", "tenant_id", "user_id", "state", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event types to the JSON schema registered for their subject.
var schemaCatalog = map[string]string{
	events.TypeTrainingRecorded:     trainingRecordedSchema,
	events.TypeTrainingStateChanged: trainingStateChangedSchema,
}
