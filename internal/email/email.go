package email

import (
	"context"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/sirupsen/logrus"
)

// Sender logs outgoing mail. Swapping in an SMTP relay only touches Send.
type Sender struct {
	from   string
	logger *logrus.Logger
}

func NewSender(from string, logger *logrus.Logger) *Sender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if from == "" {
		from = "no-reply@staybooking.local"
	}
	return &Sender{from: from, logger: logger}
}

func (s *Sender) Send(ctx context.Context, to string, n domain.Notification) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"from":       s.from,
		"to":         to,
		"booking_id": n.BookingID,
		"type":       n.Type,
		"subject":    n.Title,
	}).Info("email sent")
	return nil
}
