// Package consumer reads framed training events from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

const frameHeaderLen = 5

var (
	errShortFrame       = errors.New("frame shorter than wire header")
	errBadMagicByte     = errors.New("unexpected magic byte")
	errMissingEventType = errors.New("missing event_type header")
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Message is a decoded Kafka record emitted by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	Key           string
	EventType     string
	TenantID      string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFetchBackOff overrides the delay policy applied after failed fetches.
func WithFetchBackOff(b backoff.BackOff) Option {
	return func(p *Processor) {
		if b != nil {
			p.fetchBackOff = b
		}
	}
}

// Processor pulls messages from Kafka, decodes them and dispatches to a Handler.
type Processor struct {
	reader       Reader
	handler      Handler
	logger       *log.Logger
	fetchBackOff backoff.BackOff
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	fetchBackOff := backoff.NewExponentialBackOff()
	fetchBackOff.InitialInterval = 100 * time.Millisecond
	fetchBackOff.MaxInterval = 10 * time.Second
	fetchBackOff.MaxElapsedTime = 0

	p := &Processor{
		reader:       reader,
		handler:      handler,
		logger:       log.New(log.Writer(), "[consumer] ", log.LstdFlags),
		fetchBackOff: fetchBackOff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until ctx is cancelled. Malformed messages are committed and
// skipped; messages whose handler fails are left uncommitted.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			if err := p.waitAfterFetchError(ctx); err != nil {
				return err
			}
			continue
		}
		p.fetchBackOff.Reset()

		event, err := decodeMessage(msg)
		if err != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, err)
			recordDecodeError(msg.Topic)
			if err := p.reader.CommitMessages(ctx, msg); err != nil {
				p.logger.Printf("commit error after decode failure: %v", err)
			}
			continue
		}

		if err := p.handler.Handle(ctx, event); err != nil {
			p.logger.Printf("handler error (event_type=%s, tenant=%s, offset=%d): %v", event.EventType, event.TenantID, event.Offset, err)
			recordHandlerError(event)
			continue
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.Printf("commit error: %v", err)
			continue
		}
		recordProcessed(event)
	}
}

func (p *Processor) waitAfterFetchError(ctx context.Context) error {
	delay := p.fetchBackOff.NextBackOff()
	if delay == backoff.Stop {
		return errors.New("fetch retries exhausted")
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < frameHeaderLen {
		return Message{}, fmt.Errorf("%w: %d bytes", errShortFrame, len(msg.Value))
	}
	if msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("%w: %d", errBadMagicByte, msg.Value[0])
	}

	eventType, ok := headerValue(msg, "event_type")
	if !ok || len(eventType) == 0 {
		return Message{}, errMissingEventType
	}
	tenantID, _ := headerValue(msg, "tenant_id")
	schemaSubject, _ := headerValue(msg, "schema_subject")

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		Key:           string(msg.Key),
		EventType:     string(eventType),
		TenantID:      string(tenantID),
		SchemaSubject: string(schemaSubject),
		SchemaID:      int(binary.BigEndian.Uint32(msg.Value[1:frameHeaderLen])),
		Payload:       append(json.RawMessage(nil), msg.Value[frameHeaderLen:]...),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
