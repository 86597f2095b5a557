// Package live pushes case timeline events to websocket subscribers.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/models"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the frame sent for every timeline event
type Message struct {
	CaseID string               `json:"caseId"`
	Event  models.TimelineEvent `json:"event"`
}

type subscriber struct {
	send chan Message
}

// Hub fans events out per case. Publish never blocks: a subscriber whose
// buffer is full is disconnected.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub returns an empty Hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) subscribe(caseID string) *subscriber {
	s := &subscriber{send: make(chan Message, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[caseID] == nil {
		h.subs[caseID] = make(map[*subscriber]struct{})
	}
	h.subs[caseID][s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(caseID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(caseID, s)
}

func (h *Hub) dropLocked(caseID string, s *subscriber) {
	set, ok := h.subs[caseID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.send)
	if len(set) == 0 {
		delete(h.subs, caseID)
	}
}

// Publish sends ev to every subscriber of the case
func (h *Hub) Publish(caseID string, ev models.TimelineEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[caseID] {
		select {
		case s.send <- Message{CaseID: caseID, Event: ev}:
		default:
			zap.S().Warnw("dropping slow live subscriber", "caseId", caseID)
			h.dropLocked(caseID, s)
		}
	}
}

// Subscribers returns the number of open feeds for the case
func (h *Hub) Subscribers(caseID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[caseID])
}

// Serve upgrades the request and streams the case feed until the client
// goes away
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, caseID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}
	s := h.subscribe(caseID)
	zap.S().Debugw("live subscriber connected", "caseId", caseID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unsubscribe(caseID, s)
		conn.Close()
		zap.S().Debugw("live subscriber disconnected", "caseId", caseID)
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
