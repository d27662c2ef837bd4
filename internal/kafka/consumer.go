package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Handler func(context.Context, kafka.Message) error

type Consumer struct {
	reader *kafka.Reader
	logger *logrus.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *logrus.Logger) *Consumer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until ctx ends or the handler fails. Malformed messages are
// logged and skipped so one bad payload cannot stall the partition.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := Dispatch(ctx, c.logger, handler, msg); err != nil {
			return err
		}
	}
}

// Dispatch runs handler for one message, swallowing invalid-input failures.
func Dispatch(ctx context.Context, logger *logrus.Logger, handler Handler, msg kafka.Message) error {
	err := handler(ctx, msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		logger.WithError(err).WithFields(logrus.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skipping malformed message")
		return nil
	}
	return err
}
