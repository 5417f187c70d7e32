package socket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// session is one live connection: the authenticated principal plus a
// buffered outbound queue drained by a single writer goroutine.
type session struct {
	id        string
	principal *models.Principal
	hub       *Hub
	conn      *websocket.Conn
	send      chan outbound
	done      chan struct{}
}

func newSession(id string, p *models.Principal, hub *Hub, conn *websocket.Conn) *session {
	return &session{
		id:        id,
		principal: p,
		hub:       hub,
		conn:      conn,
		send:      make(chan outbound, sendBuffer),
		done:      make(chan struct{}),
	}
}

// enqueue queues a frame for delivery. A connection that cannot drain its
// buffer is dropped rather than allowed to stall the broadcaster.
func (s *session) enqueue(frame outbound) {
	select {
	case s.send <- frame:
	case <-s.done:
	default:
		s.hub.logger.Warn().Str("conn", s.id).Msg("send buffer full, dropping connection")
		s.hub.drop(s)
	}
}

// readPump reads frames and dispatches them in arrival order, so a single
// client's sends are never reordered. Runs on the connection's goroutine.
func (s *session) readPump() {
	defer s.hub.drop(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Debug().Err(err).Str("conn", s.id).Msg("connection closed unexpectedly")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.enqueue(outbound{Event: EventAck, Data: AckPayload{OK: false, Error: "malformed frame"}})
			continue
		}
		s.hub.dispatch(s, &env)
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings. The single writer per connection is a gorilla/websocket requirement.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
