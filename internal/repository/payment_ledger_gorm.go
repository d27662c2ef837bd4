package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type paymentRecordModel struct {
	ID        string `gorm:"primaryKey"`
	BookingID string `gorm:"not null;index"`
	Operation string `gorm:"not null"`
	Reference string
	Amount    int64  `gorm:"not null"`
	Currency  string `gorm:"size:3;not null"`
	Approved  bool
	Metadata  datatypes.JSON
	CreatedAt time.Time
}

func (paymentRecordModel) TableName() string { return "payment_records" }

type GormPaymentLedger struct {
	db *gorm.DB
}

func NewPaymentLedger(db *gorm.DB) PaymentLedger {
	return &GormPaymentLedger{db: db}
}

func (l *GormPaymentLedger) Record(ctx context.Context, rec *domain.PaymentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	m := paymentRecordModel{
		ID:        rec.ID,
		BookingID: rec.BookingID,
		Operation: string(rec.Operation),
		Reference: rec.Reference,
		Amount:    int64(rec.Amount),
		Currency:  rec.Currency,
		Approved:  rec.Approved,
		Metadata:  datatypes.JSON(meta),
	}
	if err := l.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rec.CreatedAt = m.CreatedAt
	return nil
}

func (l *GormPaymentLedger) ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentRecord, error) {
	var models []paymentRecordModel
	if err := l.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PaymentRecord, 0, len(models))
	for _, m := range models {
		rec := domain.PaymentRecord{
			ID:        m.ID,
			BookingID: m.BookingID,
			Operation: domain.PaymentOperation(m.Operation),
			Reference: m.Reference,
			Amount:    domain.Amount(m.Amount),
			Currency:  m.Currency,
			Approved:  m.Approved,
			CreatedAt: m.CreatedAt,
		}
		if len(m.Metadata) > 0 {
			if err := json.Unmarshal(m.Metadata, &rec.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

var _ PaymentLedger = (*GormPaymentLedger)(nil)
