// Package relay implements the rebroadcast server: it assigns identities,
// keeps per-room rosters with authoritative combat books, fans state and
// event messages out to room members, and forwards voice signaling to its
// target peer without inspecting it.
package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/config"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the relay server.
type Server struct {
	cfg     config.RelayConfig
	metrics *metrics

	mu    sync.Mutex
	rooms map[string]*room
}

// NewServer creates a relay server for the given configuration.
func NewServer(cfg config.RelayConfig) *Server {
	return &Server{
		cfg:     cfg,
		metrics: newMetrics(),
		rooms:   make(map[string]*room),
	}
}

// Handler returns the HTTP handler exposing the WebSocket endpoint and the
// Prometheus metrics page.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WSPath, s.handleWS)
	mux.Handle(s.cfg.TelemetryPath, promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe runs the relay until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Listen, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	util.LogInfo("relay: listening on %s (ws %s, metrics %s)",
		s.cfg.Listen, s.cfg.WSPath, s.cfg.TelemetryPath)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ---------------------------------------------------------------------------
// Connection lifecycle
// ---------------------------------------------------------------------------

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.metrics.clients.Inc()
	defer s.metrics.clients.Dec()

	c := &client{
		conn:   conn,
		send:   make(chan protocol.Envelope, sendBuffer),
		health: maxHealth,
		alive:  true,
	}
	go c.writeLoop()

	rm := s.readLoop(c)
	if rm != nil {
		s.leave(rm, c)
	}
	close(c.send)
}

// readLoop processes every inbound envelope in arrival order. It returns the
// room the client had joined, if any, once the connection dies.
func (s *Server) readLoop(c *client) *room {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var rm *room
	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				util.LogDebug("relay: client %s read error: %v", c.id, err)
			}
			return rm
		}

		s.metrics.messages.WithLabelValues(env.Type).Inc()

		// The first message must be join; everything else needs a room.
		if rm == nil {
			if env.Type != protocol.MsgJoin {
				util.LogWarning("relay: %s before join, closing", env.Type)
				return nil
			}
			var ok bool
			if rm, ok = s.join(c, env); !ok {
				return nil
			}
			continue
		}

		s.handleEnvelope(rm, c, env)
	}
}

// join assigns an identity, replies with the roster, and announces the
// newcomer to the room.
func (s *Server) join(c *client, env protocol.Envelope) (*room, bool) {
	var req protocol.JoinRequest
	if err := env.Decode(&req); err != nil {
		util.LogWarning("relay: malformed join: %v", err)
		return nil, false
	}

	rm := s.roomFor(req.Room)

	rm.mu.Lock()
	if s.cfg.MaxPerRoom > 0 && len(rm.clients) >= s.cfg.MaxPerRoom {
		rm.mu.Unlock()
		util.LogWarning("relay: room %q full, rejecting %q", req.Room, req.Name)
		return nil, false
	}

	c.id = uuid.NewString()
	c.name = req.Name
	c.position = req.Position

	// Roster is snapshotted before the newcomer is added, so it lists only
	// the players that were already present.
	roster := make([]protocol.PlayerState, 0, len(rm.clients))
	for _, other := range rm.clients {
		roster = append(roster, other.state())
	}
	rm.clients[c.id] = c
	rm.mu.Unlock()

	reply, err := protocol.Pack(protocol.MsgAssigned, protocol.AssignedReply{ID: c.id, Players: roster})
	if err != nil {
		return nil, false
	}
	c.enqueue(reply)

	announce, _ := protocol.Pack(protocol.MsgPlayerJoin, c.state())
	rm.broadcast(announce, c.id)

	util.LogInfo("relay: %q joined room %q as %s", c.name, rm.name, c.id)
	return rm, true
}

func (s *Server) leave(rm *room, c *client) {
	rm.mu.Lock()
	delete(rm.clients, c.id)
	empty := len(rm.clients) == 0
	rm.mu.Unlock()

	announce, _ := protocol.Pack(protocol.MsgPlayerLeft, protocol.PlayerLeft{ID: c.id})
	rm.broadcast(announce)

	if empty {
		s.mu.Lock()
		if cur, ok := s.rooms[rm.name]; ok && cur == rm {
			delete(s.rooms, rm.name)
			s.metrics.rooms.Dec()
		}
		s.mu.Unlock()
	}

	util.LogInfo("relay: %s left room %q", c.id, rm.name)
}

func (s *Server) roomFor(name string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[name]
	if !ok {
		rm = newRoom(name)
		s.rooms[name] = rm
		s.metrics.rooms.Inc()
	}
	return rm
}

// ---------------------------------------------------------------------------
// Message handling
// ---------------------------------------------------------------------------

func (s *Server) handleEnvelope(rm *room, c *client, env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgStateUpdate:
		var upd protocol.StateUpdate
		if env.Decode(&upd) != nil {
			return
		}
		rm.mu.Lock()
		c.position = upd.Position
		c.rotation = upd.Rotation
		c.weapon = upd.Weapon
		health := c.health
		rm.mu.Unlock()

		moved, _ := protocol.Pack(protocol.MsgPlayerMoved, protocol.PlayerMoved{
			ID: c.id, Position: upd.Position, Rotation: upd.Rotation,
			Weapon: upd.Weapon, Health: health,
		})
		rm.broadcast(moved, c.id)

	case protocol.MsgFired:
		var f protocol.Fired
		if env.Decode(&f) != nil {
			return
		}
		f.ID = c.id
		out, _ := protocol.Pack(protocol.MsgFired, f)
		rm.broadcast(out, c.id)

	case protocol.MsgHit:
		var hit protocol.Hit
		if env.Decode(&hit) != nil {
			return
		}
		s.resolveHit(rm, c, hit)

	case protocol.MsgRespawn:
		rm.mu.Lock()
		c.health = maxHealth
		c.armor = respawnArmor
		c.alive = true
		rm.mu.Unlock()

		out, _ := protocol.Pack(protocol.MsgRespawned, protocol.Respawned{ID: c.id})
		rm.broadcast(out)

	case protocol.MsgChat:
		var chat protocol.Chat
		if env.Decode(&chat) != nil {
			return
		}
		chat.ID = c.id
		chat.Name = c.name
		out, _ := protocol.Pack(protocol.MsgChat, chat)
		rm.broadcast(out)

	case protocol.MsgVoiceOffer, protocol.MsgVoiceAnswer, protocol.MsgVoiceICE:
		s.forwardVoice(rm, c, env)

	default:
		util.LogDebug("relay: ignoring %q from %s", env.Type, c.id)
	}
}

// resolveHit applies the armor-then-health rule to the relay's books and
// broadcasts the authoritative result.
func (s *Server) resolveHit(rm *room, shooter *client, hit protocol.Hit) {
	rm.mu.Lock()
	target, ok := rm.clients[hit.TargetID]
	if !ok || !target.alive || hit.Damage <= 0 {
		rm.mu.Unlock()
		return
	}

	absorbed := hit.Damage
	if absorbed > target.armor {
		absorbed = target.armor
	}
	target.armor -= absorbed
	target.health -= hit.Damage - absorbed
	if target.health < 0 {
		target.health = 0
	}

	health := target.health
	armor := target.armor
	killed := target.health == 0
	if killed {
		target.alive = false
	}
	victimName := target.name
	rm.mu.Unlock()

	dmg, _ := protocol.Pack(protocol.MsgDamaged, protocol.Damaged{
		TargetID:  hit.TargetID,
		ShooterID: shooter.id,
		Damage:    hit.Damage,
		Health:    health,
		Armor:     &armor,
	})
	rm.broadcast(dmg)

	if killed {
		s.metrics.kills.Inc()
		out, _ := protocol.Pack(protocol.MsgKilled, protocol.Killed{
			VictimID:   hit.TargetID,
			KillerID:   shooter.id,
			VictimName: victimName,
			KillerName: shooter.name,
		})
		rm.broadcast(out)
	}
}

// forwardVoice stamps the sender identity and relays the signal to its
// target. A missing target means the peer raced a disconnect; the signal is
// dropped silently.
func (s *Server) forwardVoice(rm *room, c *client, env protocol.Envelope) {
	var sig protocol.VoiceSignal
	if err := env.Decode(&sig); err != nil {
		return
	}
	sig.From = c.id

	out, err := protocol.Pack(env.Type, sig)
	if err != nil {
		return
	}
	if !rm.unicast(sig.To, out) {
		s.metrics.voiceDrops.Inc()
	}
}

