package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicInstanceTransitioned = "workflow.instance.transitioned"

	MetadataInstanceID   = "instance_id"
	MetadataDefinitionID = "workflow_definition_id"
)

// NewPubSub returns an in-process pub/sub; the same value serves as publisher and subscriber.
func NewPubSub(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)
}

// TransitionPublisher publishes every completed transition as a JSON message.
type TransitionPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewTransitionPublisher(publisher message.Publisher) *TransitionPublisher {
	return &TransitionPublisher{publisher: publisher, topic: TopicInstanceTransitioned}
}

func (p *TransitionPublisher) OnTransition(ctx context.Context, event domain.TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(MetadataInstanceID, event.InstanceID)
	msg.Metadata.Set(MetadataDefinitionID, event.WorkflowDefinitionID)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topic, msg)
}

// Handler consumes one decoded transition event.
type Handler func(ctx context.Context, event domain.TransitionEvent) error

// Subscribe delivers transition events to handler until ctx is cancelled. Messages that fail to
// decode are acked and dropped; handler errors nack the message.
func Subscribe(ctx context.Context, subscriber message.Subscriber, handler Handler) error {
	messages, err := subscriber.Subscribe(ctx, TopicInstanceTransitioned)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var event domain.TransitionEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				slog.Warn("Dropping undecodable transition message", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			if err := handler(ctx, event); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

// LogHandler writes an audit line per transition.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, e domain.TransitionEvent) error {
		logger.InfoContext(ctx, "Workflow instance transitioned",
			"instance_id", e.InstanceID,
			"workflow_definition_id", e.WorkflowDefinitionID,
			"action_id", e.ActionID,
			"from", e.FromStateID,
			"to", e.ToStateID,
			"version", e.Version,
		)
		return nil
	}
}
