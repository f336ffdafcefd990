package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 64 // per-client outbound envelope buffer
)

// Starting and respawn combat books. Armor starts empty and is granted on
// respawn, mirroring the client's predicted model.
const (
	maxHealth    = 100
	respawnArmor = 100
)

// client is one connected player from the relay's point of view.
// Game-state fields are guarded by the owning room's mutex.
type client struct {
	id   string
	name string
	conn *websocket.Conn
	send chan protocol.Envelope

	position protocol.Vec3
	rotation protocol.Euler
	weapon   string
	health   int
	armor    int
	alive    bool
}

// state snapshots the replicated player record under the room lock.
func (c *client) state() protocol.PlayerState {
	return protocol.PlayerState{
		ID:       c.id,
		Name:     c.name,
		Position: c.position,
		Rotation: c.rotation,
		Weapon:   c.weapon,
		Health:   c.health,
		Alive:    c.alive,
	}
}

// enqueue hands an envelope to the client's write pump. A slow client whose
// buffer is full loses the message rather than stalling the room.
func (c *client) enqueue(env protocol.Envelope) {
	select {
	case c.send <- env:
	default:
		util.LogDebug("relay: dropping %s to %s, send buffer full", env.Type, c.id)
	}
}

// writeLoop pumps envelopes from the send channel to the socket with
// periodic pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// room is one independent match: a roster plus authoritative combat books.
type room struct {
	name string

	mu      sync.Mutex
	clients map[string]*client
}

func newRoom(name string) *room {
	return &room{name: name, clients: make(map[string]*client)}
}

// broadcast queues env for every member except the listed ids.
func (r *room) broadcast(env protocol.Envelope, except ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		if contains(except, id) {
			continue
		}
		c.enqueue(env)
	}
}

// unicast queues env for one member. Reports whether the target existed.
func (r *room) unicast(id string, env protocol.Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return false
	}
	c.enqueue(env)
	return true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
