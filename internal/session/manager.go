// Package session owns the connection lifecycle, the local identity, and the
// remote-player roster. It republishes every inbound relay message as a typed
// event after the roster reflects it, and throttles outbound state updates.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/event"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/transport"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

// State is the connection lifecycle phase.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// ErrNotConnected is returned by Join and the Send* methods before Connect
// has succeeded.
var ErrNotConnected = errors.New("session: not connected")

// DefaultStateInterval is the minimum spacing between transmitted state
// updates (20 Hz).
const DefaultStateInterval = 50 * time.Millisecond

// Channel is the relay connection surface the manager drives.
// *transport.Conn implements it; tests substitute a mock.
type Channel interface {
	Send(kind string, payload any) error
	Run(handler func(protocol.Envelope), onClose func(error))
	Close() error
}

// DialFunc opens a Channel to the relay.
type DialFunc func(ctx context.Context) (Channel, error)

// Dialer returns a DialFunc for the given relay WebSocket URL.
func Dialer(url string) DialFunc {
	return func(ctx context.Context) (Channel, error) {
		return transport.Dial(ctx, url)
	}
}

// Manager is the session manager. One instance per process, constructed at
// start and passed to dependents.
type Manager struct {
	dial     DialFunc
	bus      *event.Bus
	interval time.Duration

	mu        sync.Mutex
	state     State
	ch        Channel
	localID   string
	localName string
	room      string
	players   map[string]*protocol.PlayerState
	lastState time.Time

	assigned chan protocol.AssignedReply
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithStateInterval overrides the outbound state-update throttle interval.
func WithStateInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// NewManager creates a session manager that dials the relay with dial and
// publishes inbound events on bus.
func NewManager(dial DialFunc, bus *event.Bus, opts ...Option) *Manager {
	m := &Manager{
		dial:     dial,
		bus:      bus,
		interval: DefaultStateInterval,
		players:  make(map[string]*protocol.PlayerState),
		assigned: make(chan protocol.AssignedReply, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Connect establishes the relay channel. No-op if already connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return nil
	}
	m.state = Connecting
	m.mu.Unlock()

	ch, err := m.dial(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		return fmt.Errorf("session: connect: %w", err)
	}

	m.mu.Lock()
	m.ch = ch
	m.state = Connected
	m.mu.Unlock()

	ch.Run(m.handleMessage, m.handleClose)
	return nil
}

// Join announces the local player to the relay and blocks until the server
// assigns an identity or ctx expires. When it returns, every player already
// in the room is present in the roster.
func (m *Manager) Join(ctx context.Context, name, room string, pos protocol.Vec3) (string, error) {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return "", ErrNotConnected
	}
	ch := m.ch
	m.localName = name
	m.room = room
	m.mu.Unlock()

	if err := ch.Send(protocol.MsgJoin, protocol.JoinRequest{Name: name, Room: room, Position: pos}); err != nil {
		return "", err
	}

	select {
	case reply := <-m.assigned:
		return reply.ID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("session: join: %w", ctx.Err())
	}
}

// Disconnect closes the relay channel. The roster is cleared and a single
// disconnected event is published once the read loop observes the close.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	ch := m.ch
	m.mu.Unlock()
	if ch != nil {
		_ = ch.Close()
	}
}

// handleClose runs exactly once when the transport is lost or closed.
// No partial roster survives a disconnect.
func (m *Manager) handleClose(err error) {
	m.mu.Lock()
	m.state = Disconnected
	m.ch = nil
	m.localID = ""
	m.players = make(map[string]*protocol.PlayerState)
	m.mu.Unlock()

	if err != nil {
		util.LogWarning("session: connection lost: %v", err)
	}
	m.bus.Publish(event.Disconnected, err)
}

// ---------------------------------------------------------------------------
// Outbound
// ---------------------------------------------------------------------------

// SendStateUpdate transmits the local pose at most once per state interval;
// calls inside the interval are dropped. Callers invoke it every frame, so
// the most recent state always wins.
func (m *Manager) SendStateUpdate(pos protocol.Vec3, rot protocol.Euler, weapon string, health int) error {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	now := time.Now()
	if now.Sub(m.lastState) < m.interval {
		m.mu.Unlock()
		return nil
	}
	m.lastState = now
	ch := m.ch
	m.mu.Unlock()

	return ch.Send(protocol.MsgStateUpdate, protocol.StateUpdate{
		Position: pos, Rotation: rot, Weapon: weapon, Health: health,
	})
}

// SendFired reports a shot. Discrete events bypass the state throttle.
func (m *Manager) SendFired(pos, dir protocol.Vec3) error {
	return m.send(protocol.MsgFired, protocol.Fired{Position: pos, Direction: dir})
}

// SendHit reports a locally resolved hit on target.
func (m *Manager) SendHit(targetID string, damage int) error {
	return m.send(protocol.MsgHit, protocol.Hit{TargetID: targetID, Damage: damage})
}

// SendRespawn asks the relay to put the local player back in play.
func (m *Manager) SendRespawn() error {
	return m.send(protocol.MsgRespawn, nil)
}

// SendChat broadcasts a text message to the room.
func (m *Manager) SendChat(text string) error {
	return m.send(protocol.MsgChat, protocol.Chat{Text: text})
}

// SendVoiceSignal relays a voice signaling message (offer, answer or
// candidate) to its target peer. Implements voice.Signaler.
func (m *Manager) SendVoiceSignal(kind string, sig protocol.VoiceSignal) error {
	return m.send(kind, sig)
}

func (m *Manager) send(kind string, payload any) error {
	m.mu.Lock()
	ch := m.ch
	ok := m.state == Connected
	m.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}
	return ch.Send(kind, payload)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// State returns the connection lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LocalID returns the server-assigned identity, or "" before join.
func (m *Manager) LocalID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localID
}

// Player returns a copy of the roster record for id.
func (m *Manager) Player(id string) (protocol.PlayerState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return protocol.PlayerState{}, false
	}
	return *p, true
}

// Players returns a copy of every roster record.
func (m *Manager) Players() []protocol.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.PlayerState, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, *p)
	}
	return out
}
