package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsPerListing(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("listing"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?listing=listing-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("listing-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), domain.BookingEvent{
		Type:      domain.EventBookingCreated,
		ListingID: "listing-2",
		Status:    domain.BookingStatusPending,
	}))
	require.NoError(t, hub.Publish(context.Background(), domain.BookingEvent{
		Type:      domain.EventBookingCancelled,
		ListingID: "listing-1",
		CheckIn:   "2024-06-01",
		CheckOut:  "2024-06-04",
		Status:    domain.BookingStatusCancelled,
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got CalendarUpdate
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "listing-1", got.ListingID)
	assert.Equal(t, domain.EventBookingCancelled, got.Type)
	assert.False(t, got.Held)
	assert.Equal(t, "2024-06-01", got.CheckIn)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers("listing-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	assert.NoError(t, hub.Publish(context.Background(), domain.BookingEvent{ListingID: "nobody"}))
	assert.Zero(t, hub.Subscribers("nobody"))
}
