package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

// Event types emitted for entry lifecycle changes
const (
	TypeEntryCreated = "io.simplecatalog.entry.created"
	TypeEntryUpdated = "io.simplecatalog.entry.updated"
	TypeEntryDeleted = "io.simplecatalog.entry.deleted"
)

const defaultSource = "/simple-catalog"

// Config configures the CloudEvents sink
type Config struct {
	Target string // HTTP endpoint receiving events
	Source string // ce-source attribute; defaults to /simple-catalog
}

// Sink publishes entry lifecycle events over HTTP as CloudEvents
type Sink struct {
	client cloudevents.Client
	source string
	now    func() time.Time
}

var _ catalog.EventSink = (*Sink)(nil)

// New creates a CloudEvents sink that posts to cfg.Target
func New(cfg Config) (*Sink, error) {
	if cfg.Target == "" {
		return nil, errors.New("event target is required")
	}

	client, err := cloudevents.NewClientHTTP(cloudevents.WithTarget(cfg.Target))
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}

	source := cfg.Source
	if source == "" {
		source = defaultSource
	}

	return &Sink{client: client, source: source, now: time.Now}, nil
}

func (s *Sink) EntryCreated(ctx context.Context, entry *catalog.Entry) error {
	return s.send(ctx, TypeEntryCreated, entry)
}

func (s *Sink) EntryUpdated(ctx context.Context, entry *catalog.Entry) error {
	return s.send(ctx, TypeEntryUpdated, entry)
}

func (s *Sink) EntryDeleted(ctx context.Context, entry *catalog.Entry) error {
	return s.send(ctx, TypeEntryDeleted, entry)
}

func (s *Sink) send(ctx context.Context, eventType string, entry *catalog.Entry) error {
	event := cloudevents.NewEvent()
	event.SetID(fmt.Sprintf("%s-%d", entry.ID, s.now().UnixNano()))
	event.SetSource(s.source)
	event.SetType(eventType)
	event.SetSubject(entry.ID.String())
	event.SetTime(s.now())
	if err := event.SetData(cloudevents.ApplicationJSON, entry); err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	if result := s.client.Send(ctx, event); cloudevents.IsUndelivered(result) || !cloudevents.IsACK(result) {
		return fmt.Errorf("failed to deliver %s event: %w", eventType, result)
	}
	return nil
}
