// Package events is the in-process publish/subscribe channel that connects
// writes to cache invalidation.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/msomdec/recipe-box/internal/metrics"
)

// Topics.
const (
	TopicRecipeCreated = "recipes.created"
	TopicRecipeMutated = "recipes.mutated"
	TopicRecipeClicked = "recipes.clicked"
	TopicUserCreated   = "users.created"
	TopicUserMutated   = "users.mutated"
)

// RecipeEvent is the payload of recipe topics.
type RecipeEvent struct {
	ID int64 `json:"id"`
}

// UserEvent is the payload of user topics.
type UserEvent struct {
	ID int64 `json:"id"`
}

// Message is a delivered event.
type Message struct {
	ID      string
	Topic   string
	Payload []byte
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Handler processes one event. Errors are logged; the event is not
// redelivered.
type Handler func(ctx context.Context, msg Message) error

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Subscriber registers handlers.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, h Handler) error
}

// Bus delivers events to in-process subscribers. Publish returns once every
// subscriber of the topic has handled the event.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

// NewBus creates a Bus. logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NewSlogLogger(logger))
	return &Bus{pubsub: pubsub, logger: logger}
}

// Publish encodes payload as JSON and delivers it on topic. A nil payload is
// sent as an empty message.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
			return fmt.Errorf("encode %s event: %w", topic, err)
		}
	}

	msg := message.NewMessage(uuid.NewString(), body)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
	return nil
}

// Subscribe runs h for every event on topic until ctx is done or the bus is
// closed. Events are acknowledged after h returns, whatever the outcome.
func (b *Bus) Subscribe(ctx context.Context, topic string, h Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			event := Message{ID: msg.UUID, Topic: topic, Payload: msg.Payload}
			if err := h(msg.Context(), event); err != nil {
				b.logger.Error("event handler failed", "topic", topic, "event_id", msg.UUID, "error", err)
			}
			msg.Ack()
		}
	}()
	return nil
}

// Close stops delivery and closes all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
