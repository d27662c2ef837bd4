package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestBooking(status BookingStatus, payment PaymentStatus) *Booking {
	return &Booking{
		ID:            "b-1",
		Status:        status,
		PaymentStatus: payment,
		Stay:          DateRange{CheckIn: day("2024-06-01"), CheckOut: day("2024-06-05")},
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := map[BookingStatus]map[BookingStatus]bool{
		BookingStatusPending:    {BookingStatusConfirmed: true, BookingStatusCancelled: true},
		BookingStatusConfirmed:  {BookingStatusInProgress: true, BookingStatusCancelled: true, BookingStatusNoShow: true},
		BookingStatusInProgress: {BookingStatusCompleted: true},
	}

	for _, from := range AllBookingStatuses() {
		for _, to := range AllBookingStatuses() {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	late := day("2024-07-01")
	for _, from := range []BookingStatus{BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow} {
		assert.True(t, from.IsTerminal())
		for _, to := range AllBookingStatuses() {
			b := newTestBooking(from, PaymentStatusPaid)
			err := b.Transition(to, late, "admin", "test")
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, from, b.Status)
		}
	}
}

func TestTransitionGuards(t *testing.T) {
	tests := []struct {
		name    string
		booking *Booking
		to      BookingStatus
		at      time.Time
		wantErr bool
	}{
		{"confirm without authorization", newTestBooking(BookingStatusPending, PaymentStatusPending), BookingStatusConfirmed, day("2024-05-01"), true},
		{"confirm after authorization", newTestBooking(BookingStatusPending, PaymentStatusAuthorized), BookingStatusConfirmed, day("2024-05-01"), false},
		{"start before check-in", newTestBooking(BookingStatusConfirmed, PaymentStatusAuthorized), BookingStatusInProgress, day("2024-05-31"), true},
		{"start on check-in day", newTestBooking(BookingStatusConfirmed, PaymentStatusAuthorized), BookingStatusInProgress, day("2024-06-01").Add(9 * time.Hour), false},
		{"no-show before check-in", newTestBooking(BookingStatusConfirmed, PaymentStatusAuthorized), BookingStatusNoShow, day("2024-05-20"), true},
		{"complete before check-out", newTestBooking(BookingStatusInProgress, PaymentStatusPaid), BookingStatusCompleted, day("2024-06-04"), true},
		{"complete on check-out day", newTestBooking(BookingStatusInProgress, PaymentStatusPaid), BookingStatusCompleted, day("2024-06-05"), false},
		{"pending straight to in progress", newTestBooking(BookingStatusPending, PaymentStatusAuthorized), BookingStatusInProgress, day("2024-06-02"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.booking.Status
			err := tt.booking.Transition(tt.to, tt.at, "", "")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, before, tt.booking.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, tt.booking.Status)
		})
	}
}

func TestCancelRecordsMetadata(t *testing.T) {
	b := newTestBooking(BookingStatusPending, PaymentStatusAuthorized)
	at := day("2024-05-10").Add(3 * time.Hour)

	err := b.Transition(BookingStatusCancelled, at, "guest-1", "plans changed")
	require.NoError(t, err)

	require.NotNil(t, b.Cancellation)
	assert.Equal(t, "guest-1", b.Cancellation.By)
	assert.Equal(t, "plans changed", b.Cancellation.Reason)
	assert.Equal(t, at.UTC(), b.Cancellation.At)
	assert.Equal(t, PaymentStatusVoided, b.PaymentStatus)
}

func TestCancelRequiresActor(t *testing.T) {
	b := newTestBooking(BookingStatusConfirmed, PaymentStatusAuthorized)
	err := b.Transition(BookingStatusCancelled, day("2024-05-10"), "", "no reason")

	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, BookingStatusConfirmed, terr.From)
	assert.Equal(t, BookingStatusCancelled, terr.To)
}

func TestCancelKeepsCapturedPaymentStatus(t *testing.T) {
	b := newTestBooking(BookingStatusConfirmed, PaymentStatusPaid)
	require.NoError(t, b.Transition(BookingStatusCancelled, day("2024-05-10"), "host-1", "maintenance"))
	assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
}

func TestAdvance(t *testing.T) {
	b := newTestBooking(BookingStatusConfirmed, PaymentStatusPaid)

	assert.Empty(t, b.Advance(day("2024-05-30")))
	assert.Equal(t, BookingStatusConfirmed, b.Status)

	passed := b.Advance(day("2024-06-06"))
	assert.Equal(t, []BookingStatus{BookingStatusInProgress, BookingStatusCompleted}, passed)
	assert.Equal(t, BookingStatusCompleted, b.Status)
	assert.NotNil(t, b.StartedAt)
	assert.NotNil(t, b.CompletedAt)
	assert.True(t, b.Reviewable())
}

func TestAdvanceLeavesPendingAlone(t *testing.T) {
	b := newTestBooking(BookingStatusPending, PaymentStatusPending)
	assert.Empty(t, b.Advance(day("2024-07-01")))
	assert.Equal(t, BookingStatusPending, b.Status)
}

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, BookingStatusConfirmed, status)

	_, err = ParseBookingStatus("EXPIRED")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
