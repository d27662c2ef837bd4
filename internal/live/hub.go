package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// CalendarUpdate is pushed to everyone watching a listing's calendar.
type CalendarUpdate struct {
	Type      domain.EventType     `json:"type"`
	ListingID string               `json:"listing_id"`
	CheckIn   string               `json:"check_in"`
	CheckOut  string               `json:"check_out"`
	Status    domain.BookingStatus `json:"status"`
	// Held reports whether the dates are taken after this change.
	Held bool      `json:"held"`
	At   time.Time `json:"at"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans booking events out to websocket clients subscribed per listing.
type Hub struct {
	upgrader    websocket.Upgrader
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	logger      *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribers: make(map[string]map[*subscriber]struct{}),
		logger:      logger,
	}
}

// Publish never blocks on slow clients: a full buffer drops the subscriber.
func (h *Hub) Publish(_ context.Context, ev domain.BookingEvent) error {
	update := CalendarUpdate{
		Type:      ev.Type,
		ListingID: ev.ListingID,
		CheckIn:   ev.CheckIn,
		CheckOut:  ev.CheckOut,
		Status:    ev.Status,
		Held:      (&domain.Booking{Status: ev.Status}).HoldsDates(),
		At:        ev.OccurredAt,
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var stale []*subscriber
	for sub := range h.subscribers[ev.ListingID] {
		select {
		case sub.send <- payload:
		default:
			stale = append(stale, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stale {
		h.remove(ev.ListingID, sub)
	}
	return nil
}

func (h *Hub) Subscribers(listingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[listingID])
}

// Serve upgrades the request and streams updates for listingID until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, listingID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.subscribers[listingID] == nil {
		h.subscribers[listingID] = make(map[*subscriber]struct{})
	}
	h.subscribers[listingID][sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(listingID, sub)
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := sub.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(listingID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subscribers[listingID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, listingID)
	}
	close(sub.send)
}
