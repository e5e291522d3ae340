package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/floorvault/apiserver/internal/mq"
	"github.com/google/uuid"
)

const (
	EventImageIngested   = "image.ingested"
	EventImageDeleted    = "image.deleted"
	EventCategoryDeleted = "category.deleted"
)

// EventPublisher delivers encoded events to a broker channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// CatalogEvent is the JSON payload announcing a catalog change.
type CatalogEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	CategoryID string    `json:"categoryId"`
	ImageID    string    `json:"imageId,omitempty"`
	ActorID    int       `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Events publishes catalog events on a best-effort basis. A nil *Events
// or one without a publisher drops every event.
type Events struct {
	publisher EventPublisher
	topic     string
	now       func() time.Time
}

func NewEvents(publisher EventPublisher, topic string) *Events {
	return &Events{publisher: publisher, topic: topic, now: time.Now}
}

// Emit publishes one event. Failures are logged and swallowed.
func (e *Events) Emit(ctx context.Context, eventType, categoryID, imageID string, actorID int) {
	if e == nil || e.publisher == nil {
		return
	}

	event := CatalogEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		CategoryID: categoryID,
		ImageID:    imageID,
		ActorID:    actorID,
		OccurredAt: e.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("encode catalog event failed", "type", eventType, "error", err)
		return
	}

	attrs := map[string]string{mq.AttrType: eventType, mq.AttrCategoryID: categoryID}
	if _, err := e.publisher.Publish(ctx, e.topic, data, attrs); err != nil {
		slog.Warn("publish catalog event failed",
			"type", eventType,
			"category_id", categoryID,
			"image_id", imageID,
			"error", err,
		)
	}
}
