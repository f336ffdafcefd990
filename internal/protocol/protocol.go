// Package protocol defines the message envelope and payload types exchanged
// between clients and the relay server.
package protocol

import "encoding/json"

// Message kind constants. The envelope type doubles as the routing key on
// both the relay and the client.
const (
	MsgJoin        = "join"         // C→S: name, room, initial position
	MsgAssigned    = "assigned"     // S→C: local id + current roster
	MsgPlayerJoin  = "player-joined"
	MsgPlayerLeft  = "player-left"
	MsgStateUpdate = "state-update" // C→S, throttled to the state interval
	MsgPlayerMoved = "player-moved" // S→C rebroadcast of state-update
	MsgFired       = "fired"
	MsgHit         = "hit"
	MsgDamaged     = "damaged"
	MsgKilled      = "killed"
	MsgRespawn     = "respawn"   // C→S
	MsgRespawned   = "respawned" // S→C
	MsgChat        = "chat"

	// Voice signaling, relayed verbatim to the target peer.
	MsgVoiceOffer  = "voice-offer"
	MsgVoiceAnswer = "voice-answer"
	MsgVoiceICE    = "voice-ice"
)

// Envelope is the JSON structure framing every WebSocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Pack builds an envelope of the given kind around the marshalled payload.
// A nil payload produces an envelope with no payload field.
func Pack(kind string, payload any) (Envelope, error) {
	env := Envelope{Type: kind}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = data
	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
