package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/training/internal/events"
)

type stubRegistry struct {
	ids   map[string]int
	calls int
	err   error
}

func (s *stubRegistry) EnsureSchema(_ context.Context, subject, schema string) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.ids[subject], nil
}

type stubWriter struct {
	written map[string][]kafka.Message
	err     error
}

func (s *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	if s.written == nil {
		s.written = make(map[string][]kafka.Message)
	}
	s.written[topic] = append(s.written[topic], msgs...)
	return nil
}

func sampleMessages() []Message {
	return []Message{
		{EventID: 1, TenantID: "t", AggregateID: "tr-1", EventType: events.TypeTrainingRecorded, Topic: "training_events", SchemaSubject: "training_events-value", PartitionKey: "t:u", Payload: []byte(`{"a":1}`)},
		{EventID: 2, TenantID: "t", AggregateID: "tr-1", EventType: events.TypeTrainingStateChanged, Topic: "training_state_changed", SchemaSubject: "training_state_changed-value", PartitionKey: "tr-1", Payload: []byte(`{"b":2}`)},
		{EventID: 3, TenantID: "t", AggregateID: "tr-2", EventType: events.TypeTrainingRecorded, Topic: "training_events", SchemaSubject: "training_events-value", PartitionKey: "t:u", Payload: []byte(`{"a":3}`)},
	}
}

func TestEncodeWireFormat(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{}`))
	require.Len(t, frame, 7)
	require.Equal(t, byte(0), frame[0])
	require.Equal(t, uint32(258), binary.BigEndian.Uint32(frame[1:5]))
	require.Equal(t, []byte(`{}`), frame[5:])
}

func TestDeliverGroupsByTopicAndCachesSchemaIDs(t *testing.T) {
	registry := &stubRegistry{ids: map[string]int{"training_events-value": 7, "training_state_changed-value": 9}}
	writer := &stubWriter{}
	d := NewDispatcher(nil, writer, registry, time.Second, 10)

	require.NoError(t, d.deliver(context.Background(), sampleMessages()))
	require.Equal(t, 2, registry.calls)
	require.Len(t, writer.written["training_events"], 2)
	require.Len(t, writer.written["training_state_changed"], 1)

	first := writer.written["training_events"][0]
	require.Equal(t, []byte("t:u"), first.Key)
	require.Equal(t, uint32(7), binary.BigEndian.Uint32(first.Value[1:5]))
	require.Equal(t, `{"a":1}`, string(first.Value[5:]))
	require.Equal(t, `{"a":3}`, string(writer.written["training_events"][1].Value[5:]))
	require.Equal(t, events.TypeTrainingRecorded, string(first.Headers[0].Value))

	require.NoError(t, d.deliver(context.Background(), sampleMessages()))
	require.Equal(t, 2, registry.calls)
}

func TestDeliverFailures(t *testing.T) {
	registry := &stubRegistry{err: errors.New("registry down")}
	d := NewDispatcher(nil, &stubWriter{}, registry, time.Second, 10)
	require.ErrorContains(t, d.deliver(context.Background(), sampleMessages()), "registry down")

	d = NewDispatcher(nil, &stubWriter{}, &stubRegistry{}, time.Second, 10)
	err := d.deliver(context.Background(), []Message{{EventType: "unknown.event", Topic: "x"}})
	require.ErrorContains(t, err, "no schema registered")

	brokerErr := errors.New("broker unavailable")
	d = NewDispatcher(nil, &stubWriter{err: brokerErr}, &stubRegistry{ids: map[string]int{}}, time.Second, 10)
	require.ErrorIs(t, d.deliver(context.Background(), sampleMessages()), brokerErr)
}

func TestSchemaCatalogCoversEveryEvent(t *testing.T) {
	for _, eventType := range []string{events.TypeTrainingRecorded, events.TypeTrainingStateChanged} {
		schema, ok := schemaCatalog[eventType]
		require.True(t, ok, eventType)
		require.True(t, json.Valid([]byte(schema)), eventType)
	}
}
