package catalog

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() *NoopEventSink {
	return &NoopEventSink{}
}

// EntryCreated does nothing and returns nil
func (n *NoopEventSink) EntryCreated(ctx context.Context, entry *Entry) error {
	return nil
}

// EntryUpdated does nothing and returns nil
func (n *NoopEventSink) EntryUpdated(ctx context.Context, entry *Entry) error {
	return nil
}

// EntryDeleted does nothing and returns nil
func (n *NoopEventSink) EntryDeleted(ctx context.Context, entry *Entry) error {
	return nil
}

// LoggingEventSink writes lifecycle events to a structured logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) *LoggingEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) EntryCreated(ctx context.Context, entry *Entry) error {
	l.logger.InfoContext(ctx, "entry created",
		"entry_id", entry.ID.String(),
		"owner_id", entry.OwnerID,
		"thumbnails", len(entry.ThumbnailRefs),
		"videos", len(entry.VideoRefs))
	return nil
}

func (l *LoggingEventSink) EntryUpdated(ctx context.Context, entry *Entry) error {
	l.logger.InfoContext(ctx, "entry updated", "entry_id", entry.ID.String())
	return nil
}

func (l *LoggingEventSink) EntryDeleted(ctx context.Context, entry *Entry) error {
	l.logger.InfoContext(ctx, "entry deleted",
		"entry_id", entry.ID.String(),
		"orphaned_refs", len(entry.ThumbnailRefs)+len(entry.VideoRefs))
	return nil
}
