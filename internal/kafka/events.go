package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// MessagePublisher is satisfied by *Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// EventPublisher sends booking events to the booking topic and, when configured,
// to the notifications topic the worker consumes.
type EventPublisher struct {
	producer           MessagePublisher
	bookingTopic       string
	notificationsTopic string
}

type EventPublisherOption func(*EventPublisher)

func WithNotificationsTopic(topic string) EventPublisherOption {
	return func(p *EventPublisher) {
		p.notificationsTopic = topic
	}
}

func NewEventPublisher(producer MessagePublisher, bookingTopic string, opts ...EventPublisherOption) *EventPublisher {
	p := &EventPublisher{producer: producer, bookingTopic: bookingTopic}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.BookingEvent) error {
	if p.producer == nil {
		return nil
	}
	var errs []error
	for _, topic := range []string{p.bookingTopic, p.notificationsTopic} {
		if topic == "" {
			continue
		}
		if err := p.producer.Publish(ctx, topic, event.BookingID, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// DecodeEvent parses a booking event message.
func DecodeEvent(data []byte) (domain.BookingEvent, error) {
	var event domain.BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("%w: booking event: %v", domain.ErrInvalidInput, err)
	}
	if event.BookingID == "" || event.Type == "" {
		return event, fmt.Errorf("%w: booking event without id or type", domain.ErrInvalidInput)
	}
	return event, nil
}
