package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

// fakeClient registers a client without a connection and waits until the
// hub loop has added it.
func fakeClient(t *testing.T, h *Hub, section string, buffer int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan []byte, buffer), section: section}
	h.register <- c
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.clients[c]
	}, time.Second, time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHub_BroadcastFiltersBySection(t *testing.T) {
	h := startHub(t)
	all := fakeClient(t, h, "", 4)
	sectionA := fakeClient(t, h, "A", 4)
	sectionB := fakeClient(t, h, "B", 4)

	h.BroadcastSeatUpdate(
		SeatUpdate{SeatID: "A1", Section: "A", Status: "booked", ReservedBy: 3},
		SeatUpdate{SeatID: "A2", Section: "A", Status: "available"},
	)

	msg := receive(t, all)
	assert.Equal(t, MessageTypeSeatsUpdated, msg.Type)
	assert.Len(t, msg.Seats, 2)

	msg = receive(t, sectionA)
	require.Len(t, msg.Seats, 2)
	assert.Equal(t, 3, msg.Seats[0].ReservedBy)

	h.BroadcastSeatUpdate(SeatUpdate{SeatID: "B4", Section: "B", Status: "booked"})
	msg = receive(t, sectionB)
	require.Len(t, msg.Seats, 1)
	assert.Equal(t, "B4", msg.Seats[0].SeatID)

	// section B never saw the A updates
	select {
	case <-sectionB.send:
		t.Fatal("unexpected extra message for section B")
	default:
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := startHub(t)
	slow := fakeClient(t, h, "", 0)
	require.Equal(t, 1, h.ClientCount(""))

	h.BroadcastSeatUpdate(SeatUpdate{SeatID: "A1", Section: "A", Status: "booked"})

	assert.Eventually(t, func() bool { return h.ClientCount("") == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_UnregisterAndShutdown(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	a := fakeClient(t, h, "A", 1)
	b := fakeClient(t, h, "A", 1)
	assert.Equal(t, 2, h.ClientCount("A"))

	h.unregister <- a
	_, ok := <-a.send
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return h.ClientCount("A") == 1 }, time.Second, time.Millisecond)

	cancel()
	<-h.done
	_, ok = <-b.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount("A"))
}

func TestHub_ServeWS(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?section=B"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount("B") == 1 }, time.Second, 10*time.Millisecond)

	h.BroadcastSeatUpdate(
		SeatUpdate{SeatID: "A1", Section: "A", Status: "booked"},
		SeatUpdate{SeatID: "B1", Section: "B", Status: "booked", ReservedBy: 9},
	)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Len(t, msg.Seats, 1)
	assert.Equal(t, "B1", msg.Seats[0].SeatID)
	assert.Equal(t, 9, msg.Seats[0].ReservedBy)

	conn.Close()
	assert.Eventually(t, func() bool { return h.ClientCount("B") == 0 }, 2*time.Second, 10*time.Millisecond)
}
