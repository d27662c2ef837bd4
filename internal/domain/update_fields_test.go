package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validListing() *Listing {
	weekly := Amount(300000)
	return &Listing{
		ID:                 "l-1",
		HostID:             "host-1",
		Title:              "Pearl loft",
		City:               "Doha",
		Status:             ListingStatusActive,
		Currency:           "QAR",
		NightlyPrice:       50000,
		WeeklyPrice:        &weekly,
		CleaningFee:        FlatFee(20000),
		MinNights:          1,
		MaxGuests:          4,
		CancellationPolicy: DefaultCancellationPolicy,
	}
}

func TestListingUpdateFieldsFromJSON(t *testing.T) {
	var u ListingUpdateFields
	err := json.Unmarshal([]byte(`{"title":"Pearl loft renovated","weekly_price":null,"min_nights":3}`), &u)
	require.NoError(t, err)

	assert.True(t, u.Title.Set)
	assert.True(t, u.WeeklyPrice.Set)
	assert.True(t, u.WeeklyPrice.Null)
	assert.False(t, u.City.Set)

	l := validListing()
	require.NoError(t, u.Apply(l))
	assert.Equal(t, "Pearl loft renovated", l.Title)
	assert.Nil(t, l.WeeklyPrice)
	assert.Equal(t, 3, l.MinNights)
	assert.Equal(t, "Doha", l.City)
	require.NotNil(t, l.CleaningFee)
}

func TestListingUpdateFieldsRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null title", `{"title":null}`},
		{"negative price", `{"nightly_price":-1}`},
		{"deleted status", `{"status":"DELETED"}`},
		{"max below min", `{"min_nights":10,"max_nights":5}`},
		{"discount above 100", `{"weekly_discount_pct":120}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u ListingUpdateFields
			require.NoError(t, json.Unmarshal([]byte(tt.body), &u))

			l := validListing()
			before := *l
			err := u.Apply(l)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, before, *l)
		})
	}
}

func TestBookingUpdateFieldsApply(t *testing.T) {
	b := &Booking{GuestID: "guest-1", HostID: "host-1", GuestMessage: "hello", HostNotes: "vip"}
	guest := Identity{UserID: "guest-1", Roles: []Role{RoleGuest}}
	host := Identity{UserID: "host-1", Roles: []Role{RoleHost}}

	var u BookingUpdateFields
	require.NoError(t, json.Unmarshal([]byte(`{"guest_message":null,"arrival_time":" 15:00 "}`), &u))
	require.NoError(t, u.Apply(b, guest))
	assert.Equal(t, "", b.GuestMessage)
	assert.Equal(t, "15:00", b.ArrivalTime)
	assert.Equal(t, "vip", b.HostNotes)

	err := u.Apply(b, host)
	assert.ErrorIs(t, err, ErrUnauthorized)

	hostPatch := BookingUpdateFields{HostNotes: Some("late arrival")}
	assert.ErrorIs(t, hostPatch.Apply(b, guest), ErrUnauthorized)
	require.NoError(t, hostPatch.Apply(b, host))
	assert.Equal(t, "late arrival", b.HostNotes)

	admin := Identity{UserID: "root", Roles: []Role{RoleAdmin}}
	require.NoError(t, BookingUpdateFields{GuestPhone: Some("+97455555555"), HostMessage: Null[string]()}.Apply(b, admin))
	assert.Equal(t, "+97455555555", b.GuestPhone)
}

func TestBookingUpdateFieldsValidation(t *testing.T) {
	b := &Booking{GuestID: "guest-1"}
	guest := Identity{UserID: "guest-1"}

	err := BookingUpdateFields{GuestEmail: Some("not-an-email")}.Apply(b, guest)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOccupancyValidate(t *testing.T) {
	assert.NoError(t, Occupancy{Adults: 2, Children: 2, Infants: 1, Pets: 1}.Validate(4))
	assert.ErrorIs(t, Occupancy{Adults: 0, Children: 1}.Validate(4), ErrInvalidOccupancy)
	assert.ErrorIs(t, Occupancy{Adults: 3, Children: 2}.Validate(4), ErrInvalidOccupancy)
	assert.ErrorIs(t, Occupancy{Adults: 1, Pets: -1}.Validate(4), ErrInvalidOccupancy)
}

func TestBookingCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := NewBookingCode()
		assert.True(t, IsBookingCode(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
	assert.False(t, IsBookingCode("HB-IIIIIIII"))
	assert.False(t, IsBookingCode("XX-12345678"))
}

func TestBookingCodeSkipsVersionAndVariantBytes(t *testing.T) {
	var a, b uuid.UUID
	for i := range a {
		a[i] = byte(i * 7)
	}
	b = a
	b[6] ^= 0xF0
	b[8] ^= 0xC0
	assert.Equal(t, bookingCodeFrom(a), bookingCodeFrom(b))

	b[9]++
	assert.NotEqual(t, bookingCodeFrom(a), bookingCodeFrom(b))

	c := a
	c[7]++
	assert.NotEqual(t, bookingCodeFrom(a), bookingCodeFrom(c))
}
