package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
)

// echoServer upgrades each request and echoes every frame back verbatim.
func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSendAndReceiveOrder(t *testing.T) {
	url := echoServer(t)

	conn, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	var mu sync.Mutex
	var kinds []string
	received := make(chan struct{}, 16)
	conn.Run(func(env protocol.Envelope) {
		mu.Lock()
		kinds = append(kinds, env.Type)
		mu.Unlock()
		received <- struct{}{}
	}, func(error) {})

	want := []string{"one", "two", "three"}
	for _, kind := range want {
		if err := conn.Send(kind, protocol.Chat{Text: kind}); err != nil {
			t.Fatalf("Send %s: %v", kind, err)
		}
	}

	for range want {
		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatal("echo never arrived")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, kind := range want {
		if kinds[i] != kind {
			t.Fatalf("arrival order %v, want %v", kinds, want)
		}
	}
}

func TestCloseIsCleanAndIdempotent(t *testing.T) {
	url := echoServer(t)

	conn, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	closeErr := make(chan error, 1)
	conn.Run(func(protocol.Envelope) {}, func(err error) { closeErr <- err })

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_ = conn.Close() // second close must be a no-op

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("Done never closed")
	}

	if err := conn.Send("late", nil); err != ErrClosed {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}

	select {
	case err := <-closeErr:
		// A locally initiated close is a clean shutdown; the torn-down
		// socket's read error must not leak to the callback.
		if err != nil {
			t.Errorf("onClose after local Close = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("onClose never fired")
	}
	select {
	case <-closeErr:
		t.Fatal("onClose fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1/ws"); err == nil {
		t.Fatal("dial to a closed port should fail")
	}
}
