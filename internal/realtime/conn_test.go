package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forumkit/internal/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var upgrader = websocket.Upgrader{}

// wsServer upgrades and pushes the given frames, then holds the connection
// open until the client goes away.
func wsServer(t *testing.T, frames []string, gotAuth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotAuth != nil {
			*gotAuth = r.Header.Get("Authorization")
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()
		for _, f := range frames {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Drain until the client disconnects.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestConnDeliversAndDedups(t *testing.T) {
	defer goleak.VerifyNone(t)

	var gotAuth string
	srv := wsServer(t, []string{
		`{"channel":"post_created","event_id":"a","payload":{"id":1}}`,
		`{"channel":"post_created","event_id":"a","payload":{"id":1}}`,
		`{"channel":"post_created","event_id":"b","payload":{"id":2}}`,
		`not even json`,
	}, &gotAuth)
	defer srv.Close()

	d := NewDispatcher(0)
	delivered := make(chan model.Event, 8)
	d.Install(model.ChannelPostCreated, func(ev model.Event) { delivered <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn := NewConn(ConnConfig{URL: wsURL}, func() string { return "tok-123" }, d)
	conn.Start(ctx)

	var got []model.Event
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-delivered:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out, delivered=%d", len(got))
		}
	}

	// No third delivery: the duplicate "a" was dropped.
	select {
	case ev := <-delivered:
		t.Fatalf("unexpected extra delivery: %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EventID)
	assert.Equal(t, "b", got[1].EventID)
	assert.Equal(t, "Bearer tok-123", gotAuth)

	cancel()
	select {
	case <-conn.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("connection loop did not exit after cancel")
	}
	srv.Close()
}

func TestConnReconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	dials := make(chan struct{}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials <- struct{}{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Drop the connection immediately to force a reconnect.
		ws.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn := NewConn(ConnConfig{
		URL:     wsURL,
		Backoff: 10 * time.Millisecond,
	}, func() string { return "" }, NewDispatcher(0))
	conn.Start(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-dials:
		case <-time.After(3 * time.Second):
			t.Fatalf("expected redial %d", i+1)
		}
	}

	cancel()
	select {
	case <-conn.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("connection loop did not exit after cancel")
	}
	srv.Close()
}
