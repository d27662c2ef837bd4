package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SandboxGateway answers synchronously without moving money. Totals above
// declineAbove are declined so the unhappy path can be exercised end to end.
type SandboxGateway struct {
	declineAbove domain.Amount
	ledger       repository.PaymentLedger
	logger       *logrus.Logger
}

func NewSandboxGateway(declineAbove int64, ledger repository.PaymentLedger, logger *logrus.Logger) *SandboxGateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SandboxGateway{declineAbove: domain.Amount(declineAbove), ledger: ledger, logger: logger}
}

func (g *SandboxGateway) Authorize(ctx context.Context, bookingID string, amount domain.Amount, currency string) (domain.AuthResult, error) {
	result := domain.AuthResult{
		BookingID: bookingID,
		Reference: "sbx_" + uuid.NewString(),
		Status:    domain.AuthApproved,
	}
	if g.declineAbove > 0 && amount > g.declineAbove {
		result.Status = domain.AuthDeclined
		result.Message = fmt.Sprintf("amount %s exceeds sandbox limit", amount.Format(currency))
	}
	record(ctx, g.ledger, g.logger, &domain.PaymentRecord{
		BookingID: bookingID,
		Operation: domain.PaymentAuthorize,
		Reference: result.Reference,
		Amount:    amount,
		Currency:  currency,
		Approved:  result.Status == domain.AuthApproved,
		Metadata:  map[string]any{"gateway": "sandbox", "message": result.Message},
	})
	return result, nil
}

func (g *SandboxGateway) Capture(ctx context.Context, bookingID, reference string, amount domain.Amount, currency string) (*domain.PaymentResult, error) {
	return g.settle(ctx, domain.PaymentCapture, bookingID, reference, amount, currency), nil
}

func (g *SandboxGateway) Refund(ctx context.Context, bookingID, reference string, amount domain.Amount, currency string) (*domain.PaymentResult, error) {
	return g.settle(ctx, domain.PaymentRefund, bookingID, reference, amount, currency), nil
}

func (g *SandboxGateway) settle(ctx context.Context, op domain.PaymentOperation, bookingID, reference string, amount domain.Amount, currency string) *domain.PaymentResult {
	result := &domain.PaymentResult{
		BookingID: bookingID,
		Operation: op,
		Reference: reference,
		Approved:  true,
		Amount:    amount,
	}
	record(ctx, g.ledger, g.logger, &domain.PaymentRecord{
		BookingID: bookingID,
		Operation: op,
		Reference: reference,
		Amount:    amount,
		Currency:  currency,
		Approved:  true,
		Metadata:  map[string]any{"gateway": "sandbox"},
	})
	return result
}

// Publisher is the slice of the Kafka producer the gateway needs.
type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

// commandRetries bounds delivery attempts for one payment command.
const commandRetries = 3

// KafkaGateway hands payment commands to an external processor. Its answers come
// back on the results topic and are applied through HandlePaymentResult.
type KafkaGateway struct {
	producer Publisher
	topic    string
	ledger   repository.PaymentLedger
	logger   *logrus.Logger
	now      func() time.Time
}

func NewKafkaGateway(producer Publisher, topic string, ledger repository.PaymentLedger, logger *logrus.Logger) *KafkaGateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KafkaGateway{producer: producer, topic: topic, ledger: ledger, logger: logger, now: time.Now}
}

func (g *KafkaGateway) Authorize(ctx context.Context, bookingID string, amount domain.Amount, currency string) (domain.AuthResult, error) {
	if err := g.send(ctx, domain.PaymentAuthorize, bookingID, "", amount, currency); err != nil {
		return domain.AuthResult{}, err
	}
	return domain.AuthResult{BookingID: bookingID, Status: domain.AuthPending}, nil
}

func (g *KafkaGateway) Capture(ctx context.Context, bookingID, reference string, amount domain.Amount, currency string) (*domain.PaymentResult, error) {
	return nil, g.send(ctx, domain.PaymentCapture, bookingID, reference, amount, currency)
}

func (g *KafkaGateway) Refund(ctx context.Context, bookingID, reference string, amount domain.Amount, currency string) (*domain.PaymentResult, error) {
	return nil, g.send(ctx, domain.PaymentRefund, bookingID, reference, amount, currency)
}

func (g *KafkaGateway) send(ctx context.Context, op domain.PaymentOperation, bookingID, reference string, amount domain.Amount, currency string) error {
	cmd := domain.PaymentCommand{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Operation: op,
		Reference: reference,
		Amount:    amount,
		Currency:  currency,
		IssuedAt:  g.now().UTC(),
	}
	if err := g.producer.PublishWithRetry(ctx, g.topic, bookingID, cmd, commandRetries); err != nil {
		return fmt.Errorf("send %s command: %w", op, err)
	}
	g.logger.WithFields(logrus.Fields{"booking_id": bookingID, "operation": op, "command_id": cmd.ID}).Info("payment command sent")
	record(ctx, g.ledger, g.logger, &domain.PaymentRecord{
		BookingID: bookingID,
		Operation: op,
		Reference: reference,
		Amount:    amount,
		Currency:  currency,
		Metadata:  map[string]any{"gateway": "kafka", "command_id": cmd.ID, "state": "sent"},
	})
	return nil
}

// DecodeResult parses a message from the payment results topic.
func DecodeResult(data []byte) (domain.PaymentResult, error) {
	var result domain.PaymentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("%w: payment result: %v", domain.ErrInvalidInput, err)
	}
	if result.BookingID == "" {
		return result, fmt.Errorf("%w: payment result without booking id", domain.ErrInvalidInput)
	}
	switch result.Operation {
	case domain.PaymentAuthorize, domain.PaymentCapture, domain.PaymentRefund:
	default:
		return result, fmt.Errorf("%w: unknown payment operation %q", domain.ErrInvalidInput, result.Operation)
	}
	return result, nil
}

// RecordResult writes an asynchronous gateway answer to the ledger.
func RecordResult(ctx context.Context, ledger repository.PaymentLedger, logger *logrus.Logger, result domain.PaymentResult, currency string) {
	record(ctx, ledger, logger, &domain.PaymentRecord{
		BookingID: result.BookingID,
		Operation: result.Operation,
		Reference: result.Reference,
		Amount:    result.Amount,
		Currency:  currency,
		Approved:  result.Approved,
		Metadata:  map[string]any{"gateway": "kafka", "message": result.Message},
	})
}

// record is best effort: a ledger outage must not fail the payment itself.
func record(ctx context.Context, ledger repository.PaymentLedger, logger *logrus.Logger, rec *domain.PaymentRecord) {
	if ledger == nil {
		return
	}
	if err := ledger.Record(ctx, rec); err != nil {
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": rec.BookingID,
			"operation":  rec.Operation,
		}).Error("failed to write payment ledger")
	}
}
