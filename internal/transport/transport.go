// Package transport wraps the persistent WebSocket channel to the relay
// server: connect, named-message send, and an inbound read loop that
// delivers envelopes in arrival order.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

// ErrClosed is returned by Send after the connection has shut down.
var ErrClosed = errors.New("transport: connection closed")

// Conn is one live WebSocket connection to the relay.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	closeOnce  sync.Once
	localClose atomic.Bool
	done       chan struct{}
}

// Dial opens a WebSocket connection to the relay at url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: connect to %s: %w", url, err)
	}
	return &Conn{ws: ws, done: make(chan struct{})}, nil
}

// Send marshals payload into an envelope of the given kind and writes it.
// Safe for concurrent use; writes are serialized by a mutex.
func (c *Conn) Send(kind string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	env, err := protocol.Pack(kind, payload)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", kind, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", kind, err)
	}

	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("transport: write %s: %w", kind, err)
	}

	util.Stats.AddSent(len(data))
	return nil
}

// Run starts the read loop on a background goroutine. Every inbound envelope
// is passed to handler on that single goroutine, preserving arrival order.
// When the loop ends (remote close, network error, or Close), onClose is
// invoked exactly once with the terminal error (nil for a clean close).
func (c *Conn) Run(handler func(protocol.Envelope), onClose func(error)) {
	go func() {
		for {
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				c.shutdown()
				// A locally initiated Close surfaces as a read error on the
				// torn-down socket; that is a clean shutdown, not a failure.
				if c.localClose.Load() ||
					websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					onClose(nil)
				} else {
					onClose(err)
				}
				return
			}

			util.Stats.AddRecv(len(data))

			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				util.LogWarning("transport: dropping malformed frame: %v", err)
				continue
			}
			handler(env)
		}
	}()
}

// Close tears down the connection. The read loop observes the closed socket
// and fires its onClose callback.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.localClose.Store(true)
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// Done returns a channel closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
