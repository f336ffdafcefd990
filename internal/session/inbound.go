package session

import (
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/event"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

// handleMessage runs on the transport read goroutine, so messages are
// processed strictly in arrival order. The roster is updated before the
// corresponding event is published, so subscribers never observe a message
// the internal map does not yet reflect.
func (m *Manager) handleMessage(env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgAssigned:
		var reply protocol.AssignedReply
		if !decode(env, &reply) {
			return
		}
		m.mu.Lock()
		m.localID = reply.ID
		for i := range reply.Players {
			p := reply.Players[i]
			m.players[p.ID] = &p
		}
		roster := make([]protocol.PlayerState, len(reply.Players))
		copy(roster, reply.Players)
		m.mu.Unlock()

		// Existing players are announced individually before the connected
		// event, so proxy owners spawn the full room before anything else
		// depends on it.
		for _, p := range roster {
			m.bus.Publish(event.PlayerJoined, p)
		}
		m.bus.Publish(event.Connected, reply.ID)

		select {
		case m.assigned <- reply:
		default:
		}

	case protocol.MsgPlayerJoin:
		var p protocol.PlayerState
		if !decode(env, &p) {
			return
		}
		m.mu.Lock()
		rec := p
		m.players[p.ID] = &rec
		m.mu.Unlock()
		m.bus.Publish(event.PlayerJoined, p)

	case protocol.MsgPlayerLeft:
		var left protocol.PlayerLeft
		if !decode(env, &left) {
			return
		}
		m.mu.Lock()
		delete(m.players, left.ID)
		m.mu.Unlock()
		m.bus.Publish(event.PlayerLeft, left)

	case protocol.MsgPlayerMoved:
		var mv protocol.PlayerMoved
		if !decode(env, &mv) {
			return
		}
		m.mu.Lock()
		if p, ok := m.players[mv.ID]; ok {
			p.Position = mv.Position
			p.Rotation = mv.Rotation
			p.Weapon = mv.Weapon
			p.Health = mv.Health
		}
		m.mu.Unlock()
		m.bus.Publish(event.PlayerMoved, mv)

	case protocol.MsgFired:
		var f protocol.Fired
		if !decode(env, &f) {
			return
		}
		m.bus.Publish(event.Fired, f)

	case protocol.MsgDamaged:
		var d protocol.Damaged
		if !decode(env, &d) {
			return
		}
		m.mu.Lock()
		if p, ok := m.players[d.TargetID]; ok {
			p.Health = d.Health
		}
		m.mu.Unlock()
		m.bus.Publish(event.Damaged, d)

	case protocol.MsgKilled:
		var k protocol.Killed
		if !decode(env, &k) {
			return
		}
		m.mu.Lock()
		if p, ok := m.players[k.VictimID]; ok {
			p.Alive = false
			p.Health = 0
		}
		m.mu.Unlock()
		m.bus.Publish(event.Killed, k)

	case protocol.MsgRespawned:
		var r protocol.Respawned
		if !decode(env, &r) {
			return
		}
		m.mu.Lock()
		if p, ok := m.players[r.ID]; ok {
			p.Alive = true
			p.Health = 100
		}
		m.mu.Unlock()
		m.bus.Publish(event.Respawned, r)

	case protocol.MsgChat:
		var c protocol.Chat
		if !decode(env, &c) {
			return
		}
		m.bus.Publish(event.Chat, c)

	case protocol.MsgVoiceOffer, protocol.MsgVoiceAnswer, protocol.MsgVoiceICE:
		var sig protocol.VoiceSignal
		if !decode(env, &sig) {
			return
		}
		m.bus.Publish(voiceKind(env.Type), sig)

	default:
		util.LogDebug("session: ignoring unknown message kind %q", env.Type)
	}
}

func voiceKind(msgType string) event.Kind {
	switch msgType {
	case protocol.MsgVoiceOffer:
		return event.VoiceOffer
	case protocol.MsgVoiceAnswer:
		return event.VoiceAnswer
	default:
		return event.VoiceICE
	}
}

func decode(env protocol.Envelope, v any) bool {
	if err := env.Decode(v); err != nil {
		util.LogWarning("session: malformed %s payload: %v", env.Type, err)
		return false
	}
	return true
}
