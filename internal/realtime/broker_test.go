package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/orion/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func connect(t *testing.T, b *Broker) *bufio.Reader {
	t.Helper()

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	t.Cleanup(b.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return b.Clients() == 1 }, time.Second, 5*time.Millisecond)
	return bufio.NewReader(resp.Body)
}

func TestBroker_InitialSnapshot(t *testing.T) {
	board := []core.Signal{{ID: "a", Symbol: "NQ", Status: core.StatusPending}}
	b := NewBroker(WithInitialSnapshot(func() []core.Signal { return board }))

	r := connect(t, b)
	ev := readEvent(t, r)
	assert.Equal(t, EventSnapshot, ev.name)

	var got []core.Signal
	require.NoError(t, json.Unmarshal([]byte(ev.data), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestBroker_SnapshotAndPriceEvents(t *testing.T) {
	b := NewBroker()
	r := connect(t, b)

	b.OnChange(nil, []core.Signal{{ID: "x", Symbol: "MNQ", Status: core.StatusConfirmed}})
	ev := readEvent(t, r)
	assert.Equal(t, EventSnapshot, ev.name)
	assert.Contains(t, ev.data, `"id":"x"`)

	b.OnTick(core.PriceTick{Symbol: "MNQ", Price: 17000})
	ev = readEvent(t, r)
	assert.Equal(t, EventPrice, ev.name)
	assert.Contains(t, ev.data, `"price":17000`)

	b.OnStatus(core.StatusDisconnected)
	ev = readEvent(t, r)
	assert.Equal(t, EventStatus, ev.name)
	assert.JSONEq(t, `{"status":"disconnected"}`, ev.data)
}

func TestBroker_EmptyBoardIsArray(t *testing.T) {
	b := NewBroker()
	r := connect(t, b)

	b.OnChange([]core.Signal{{ID: "gone"}}, nil)
	ev := readEvent(t, r)
	assert.Equal(t, "[]", ev.data)
}

func TestBroker_KeepAlive(t *testing.T) {
	b := NewBroker(WithKeepAlive(10 * time.Millisecond))
	r := connect(t, b)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", line)
}

func TestBroker_SlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(WithBuffer(1))
	client := make(chan message, 1)
	require.True(t, b.register(client))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Broadcast(EventPrice, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	assert.Len(t, client, 1)
}

func TestBroker_CloseDisconnectsClients(t *testing.T) {
	b := NewBroker()
	client := make(chan message, 1)
	require.True(t, b.register(client))

	b.Close()
	_, ok := <-client
	assert.False(t, ok)
	assert.Zero(t, b.Clients())
	assert.False(t, b.register(make(chan message, 1)))

	b.Close()
}

func TestBroker_RejectsAfterClose(t *testing.T) {
	b := NewBroker()
	b.Close()

	w := httptest.NewRecorder()
	b.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
