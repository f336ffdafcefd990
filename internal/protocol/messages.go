package protocol

// PlayerState is the last-known replicated state of one player, as held in
// the roster and carried by join/moved messages.
type PlayerState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
	Rotation Euler  `json:"rotation"`
	Weapon   string `json:"weapon,omitempty"`
	Health   int    `json:"health"`
	Alive    bool   `json:"alive"`
}

// JoinRequest is the first message a client sends after connecting.
type JoinRequest struct {
	Name     string `json:"name"`
	Room     string `json:"room"`
	Position Vec3   `json:"position"`
}

// AssignedReply carries the server-assigned identity and the roster of
// players already in the room.
type AssignedReply struct {
	ID      string        `json:"id"`
	Players []PlayerState `json:"players"`
}

// PlayerLeft announces a departure.
type PlayerLeft struct {
	ID string `json:"id"`
}

// StateUpdate is the client's continuous outbound state, sent at most once
// per state interval.
type StateUpdate struct {
	Position Vec3   `json:"position"`
	Rotation Euler  `json:"rotation"`
	Weapon   string `json:"weapon,omitempty"`
	Health   int    `json:"health"`
}

// PlayerMoved is the relay's rebroadcast of a StateUpdate.
type PlayerMoved struct {
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
	Rotation Euler  `json:"rotation"`
	Weapon   string `json:"weapon,omitempty"`
	Health   int    `json:"health"`
}

// Fired reports a discrete shot. ID is filled in by the relay.
type Fired struct {
	ID        string `json:"id,omitempty"`
	Position  Vec3   `json:"position"`
	Direction Vec3   `json:"direction"`
}

// Hit is the client's claim of a successful hit scan.
type Hit struct {
	TargetID string `json:"targetId"`
	Damage   int    `json:"damage"`
}

// Damaged carries a hit's damage amount and the relay's authoritative
// health after applying it. Armor is a pointer so older relays that do not
// track armor can omit it; the client trusts its own prediction in that
// case.
type Damaged struct {
	TargetID  string `json:"targetId"`
	ShooterID string `json:"shooterId"`
	Damage    int    `json:"damage"`
	Health    int    `json:"health"`
	Armor     *int   `json:"armor,omitempty"`
}

// Killed announces a death. Names are optional display data.
type Killed struct {
	VictimID   string `json:"victimId"`
	KillerID   string `json:"killerId"`
	VictimName string `json:"victimName,omitempty"`
	KillerName string `json:"killerName,omitempty"`
}

// Respawned announces that a player is back in play.
type Respawned struct {
	ID string `json:"id"`
}

// Chat is a room-wide text message.
type Chat struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
}

// VoiceSignal is the payload of voice-offer, voice-answer and voice-ice
// messages. The relay fills From and forwards to To without inspecting the
// SDP or candidate contents.
type VoiceSignal struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}
