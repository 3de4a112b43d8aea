package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/ayusman/handtrack/internal/detector"
	"github.com/ayusman/handtrack/internal/tracker"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLandmarkHub_Broadcast(t *testing.T) {
	h := NewLandmarkHub()
	ts := httptest.NewServer(h)
	defer ts.Close()

	a := dialHub(t, ts)
	b := dialHub(t, ts)
	waitFor(t, func() bool { return h.Clients() == 2 })

	want := tracker.FrameResult{
		Seq:    7,
		Time:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Width:  640,
		Height: 480,
		FPS:    29.5,
		Hands: []tracker.HandResult{{
			Index:      0,
			Handedness: "Right",
			Score:      0.9,
			Positions:  []detector.Position{{ID: 0, X: 320, Y: 400}, {ID: 4, X: 200, Y: 300}},
		}},
	}
	h.Publish(want)

	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got tracker.FrameResult
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client %s: ReadJSON() error = %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("client %s: result mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestLandmarkHub_PublishWithoutClients(t *testing.T) {
	h := NewLandmarkHub()
	h.Publish(tracker.FrameResult{Seq: 1})

	if n := h.Clients(); n != 0 {
		t.Errorf("Clients() = %d, want 0", n)
	}
}

func TestLandmarkHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewLandmarkHub()
	ts := httptest.NewServer(h)
	defer ts.Close()

	dialHub(t, ts)
	waitFor(t, func() bool { return h.Clients() == 1 })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < clientBuffer*20; i++ {
			h.Publish(tracker.FrameResult{Seq: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a client that never reads")
	}
}

func TestLandmarkHub_Close(t *testing.T) {
	h := NewLandmarkHub()
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn := dialHub(t, ts)
	waitFor(t, func() bool { return h.Clients() == 1 })

	h.Close()
	h.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}

	late := dialHub(t, ts)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("late client error = %v, want going-away close", err)
	}
	if n := h.Clients(); n != 0 {
		t.Errorf("Clients() = %d, want 0", n)
	}
}
