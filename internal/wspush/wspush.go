// Package wspush adapts a live session's subscribers to browser
// WebSocket clients: three JSON envelope shapes (init, packet, history)
// and a thin Hub built on github.com/gorilla/websocket. No auth, no
// filtering, no pagination.
package wspush

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/capture"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/session"
)

// InitEnvelope is sent once, immediately on subscriber attach.
type InitEnvelope struct {
	Type     string                 `json:"type"`
	ViewMode bool                   `json:"viewMode"`
	Packets  []capture.PacketRecord `json:"packets"`
}

// PacketEnvelope is sent per live decoded packet.
type PacketEnvelope struct {
	Type string               `json:"type"`
	Data capture.PacketRecord `json:"data"`
}

// HistoryEnvelope is sent for a bulk resend.
type HistoryEnvelope struct {
	Type    string                 `json:"type"`
	Packets []capture.PacketRecord `json:"packets"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub is the minimal websocket listener that fans a session's
// subscriber events out to one browser connection per HTTP upgrade.
type Hub struct {
	sess *session.Session
}

// NewHub adapts sess for WebSocket delivery.
func NewHub(sess *session.Session) *Hub {
	return &Hub{sess: sess}
}

// ServeHTTP upgrades the connection, subscribes to sess, and streams
// envelopes until the subscriber is cancelled or the write fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wspush: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, events, cancel, err := h.sess.Subscribe()
	if err != nil {
		log.Printf("wspush: subscribe rejected: %v", err)
		return
	}
	defer cancel()

	go drainReads(conn)

	for ev := range events {
		msg, ok := toEnvelope(ev)
		if !ok {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("wspush: write failed for subscriber %d: %v", id, err)
			return
		}
	}
}

// drainReads discards client frames so gorilla's internal read loop
// keeps servicing pings/pongs/close on this one-way push channel.
func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func toEnvelope(ev session.Event) (any, bool) {
	switch ev.Kind {
	case session.EventInit:
		return InitEnvelope{Type: "init", ViewMode: ev.ViewMode, Packets: capture.ToRecords(ev.Packets)}, true
	case session.EventPacket:
		return PacketEnvelope{Type: "packet", Data: capture.ToRecord(ev.Packet)}, true
	case session.EventHistory:
		return HistoryEnvelope{Type: "history", Packets: capture.ToRecords(ev.Packets)}, true
	default:
		return nil, false
	}
}
