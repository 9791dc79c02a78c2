package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	idleTimeout    = 5 * time.Minute
	maxFrameBytes  = 4 << 10
	closeFrameWait = time.Second

	// PingPeriod must stay below idleTimeout so a quiet but healthy client
	// answers with a pong before its read deadline passes.
	PingPeriod = time.Minute
)

// Stream wraps one attempt connection. Data frames are read and written on
// the handler goroutine only; the keepalive goroutine sends control frames,
// which gorilla allows concurrently.
type Stream struct {
	conn *websocket.Conn
	stop chan struct{}
}

// NewStream applies the read limit and starts pinging the client every
// pingPeriod. Each pong pushes the idle deadline forward. Call Stop when the
// handler returns.
func NewStream(conn *websocket.Conn, pingPeriod time.Duration) *Stream {
	conn.SetReadLimit(maxFrameBytes)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
	s := &Stream{conn: conn, stop: make(chan struct{})}
	go s.keepAlive(pingPeriod)
	return s
}

func (s *Stream) keepAlive(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Stop ends the keepalive. It does not close the connection.
func (s *Stream) Stop() {
	close(s.stop)
}

// Next blocks for the next client action.
func (s *Stream) Next() (*RequestPayload, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
		return nil, err
	}
	var msg RequestPayload
	if err := s.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Send writes one event frame.
func (s *Stream) Send(v interface{}) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// Fail writes an error event. The connection stays open.
func (s *Stream) Fail(code, message string) error {
	return s.Send(ErrorResponse{Event: EventError, Code: code, Error: message})
}

// Finish sends a normal close frame, used once the attempt is finalized.
func (s *Stream) Finish(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameWait))
}

// IsClientGone reports whether a read error is an ordinary disconnect.
func IsClientGone(err error) bool {
	return !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure)
}
