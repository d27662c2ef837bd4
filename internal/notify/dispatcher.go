package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/staybooking/internal/domain"
	kafkaevents "github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Mailer interface {
	Send(ctx context.Context, to string, n domain.Notification) error
}

// Dispatcher turns booking events into inbox entries for every party and mails
// the guest when an address is known.
type Dispatcher struct {
	inbox  Inbox
	mailer Mailer
	logger *logrus.Logger
}

func NewDispatcher(inbox Inbox, mailer Mailer, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{inbox: inbox, mailer: mailer, logger: logger}
}

// Publish lets the dispatcher sit directly behind the booking service when
// kafka is disabled.
func (d *Dispatcher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	return d.Handle(ctx, ev)
}

func (d *Dispatcher) Handle(ctx context.Context, ev domain.BookingEvent) error {
	var errs []error
	for _, userID := range ev.Recipients() {
		n := domain.NotificationFor(ev, userID)
		if err := d.inbox.Save(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
			continue
		}
		if d.mailer != nil && userID == ev.GuestID && ev.GuestEmail != "" {
			if err := d.mailer.Send(ctx, ev.GuestEmail, n); err != nil {
				d.logger.WithError(err).WithField("booking_id", ev.BookingID).Warn("failed to send email")
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	d.logger.WithFields(logrus.Fields{
		"booking_id": ev.BookingID,
		"type":       ev.Type,
	}).Debug("notifications stored")
	return nil
}

// HandleMessage is the kafka consumer entry point.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg kafka.Message) error {
	ev, err := kafkaevents.DecodeEvent(msg.Value)
	if err != nil {
		return err
	}
	return d.Handle(ctx, ev)
}
