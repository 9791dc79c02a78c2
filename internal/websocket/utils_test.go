package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStream_PingsIdleClient(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		stream := NewStream(conn, 20*time.Millisecond)
		defer stream.Stop()
		for {
			if _, err := stream.Next(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pings := make(chan struct{}, 8)
	conn.SetPingHandler(func(data string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	// Control frames are only processed while the client reads.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-pings:
		case <-time.After(2 * time.Second):
			t.Fatalf("ping %d not received from an idle stream", i+1)
		}
	}
}

func TestIsClientGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "normal close", err: &websocket.CloseError{Code: websocket.CloseNormalClosure}, want: true},
		{name: "going away", err: &websocket.CloseError{Code: websocket.CloseGoingAway}, want: true},
		{name: "abnormal close", err: &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsClientGone(tc.err); got != tc.want {
				t.Fatalf("IsClientGone() = %v, want %v", got, tc.want)
			}
		})
	}
}
