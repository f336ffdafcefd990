package protocol

import (
	"encoding/json"
	"math"
	"testing"
)

// TestPackDecodeRoundTrip verifies that Pack and Decode are inverse
// operations for representative message kinds.
func TestPackDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		kind    string
		payload any
	}{
		{
			name: "join request",
			kind: MsgJoin,
			payload: JoinRequest{
				Name:     "ada",
				Room:     "arena",
				Position: Vec3{X: 1, Y: 0, Z: -3},
			},
		},
		{
			name: "state update",
			kind: MsgStateUpdate,
			payload: StateUpdate{
				Position: Vec3{X: 10.5, Z: 2.25},
				Rotation: Euler{Y: 1.57},
				Weapon:   "rifle",
				Health:   80,
			},
		},
		{
			name: "voice offer",
			kind: MsgVoiceOffer,
			payload: VoiceSignal{
				To:  "peer-1",
				SDP: "v=0\r\no=- 0 0 IN IP4 0.0.0.0\r\n",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Pack(tc.kind, tc.payload)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			if env.Type != tc.kind {
				t.Fatalf("envelope type = %q, want %q", env.Type, tc.kind)
			}

			// Simulate a trip over the wire.
			raw, err := json.Marshal(env)
			if err != nil {
				t.Fatalf("marshal envelope: %v", err)
			}
			var got Envelope
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("unmarshal envelope: %v", err)
			}

			switch want := tc.payload.(type) {
			case JoinRequest:
				var p JoinRequest
				if err := got.Decode(&p); err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if p != want {
					t.Errorf("decoded %+v, want %+v", p, want)
				}
			case StateUpdate:
				var p StateUpdate
				if err := got.Decode(&p); err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if p != want {
					t.Errorf("decoded %+v, want %+v", p, want)
				}
			case VoiceSignal:
				var p VoiceSignal
				if err := got.Decode(&p); err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if p != want {
					t.Errorf("decoded %+v, want %+v", p, want)
				}
			}
		})
	}
}

// TestPackNilPayload verifies that messages without a body (respawn) still
// produce a decodable envelope.
func TestPackNilPayload(t *testing.T) {
	env, err := Pack(MsgRespawn, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if env.Type != MsgRespawn {
		t.Fatalf("envelope type = %q, want %q", env.Type, MsgRespawn)
	}
}

// TestDamagedArmorOmitted verifies that the armor field disappears from the
// wire when nil and round-trips when set.
func TestDamagedArmorOmitted(t *testing.T) {
	env, err := Pack(MsgDamaged, Damaged{TargetID: "t", ShooterID: "s", Damage: 30, Health: 70})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if string(env.Payload) == "" {
		t.Fatal("empty payload")
	}
	var m map[string]any
	if err := json.Unmarshal(env.Payload, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := m["armor"]; present {
		t.Error("nil armor should be omitted from the wire")
	}

	armor := 40
	env, err = Pack(MsgDamaged, Damaged{TargetID: "t", Damage: 30, Health: 70, Armor: &armor})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	var d Damaged
	if err := env.Decode(&d); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Armor == nil || *d.Armor != 40 {
		t.Errorf("armor = %v, want 40", d.Armor)
	}
}

func TestVec3Lerp(t *testing.T) {
	a := Vec3{X: 0, Y: 0, Z: 0}
	b := Vec3{X: 10, Y: -4, Z: 2}

	got := a.Lerp(b, 0.5)
	want := Vec3{X: 5, Y: -2, Z: 1}
	if got != want {
		t.Errorf("Lerp(0.5) = %+v, want %+v", got, want)
	}

	if a.Lerp(b, 0) != a {
		t.Error("Lerp(0) should return the start point")
	}
	if a.Lerp(b, 1) != b {
		t.Error("Lerp(1) should return the end point")
	}
}

// TestEulerLerpShortestArc verifies that yaw interpolation crosses the ±π
// seam instead of spinning the long way around.
func TestEulerLerpShortestArc(t *testing.T) {
	a := Euler{Y: math.Pi - 0.1}
	b := Euler{Y: -math.Pi + 0.1}

	got := a.Lerp(b, 0.5).Y

	// Halfway across the seam is ±π, not 0.
	if math.Abs(math.Abs(got)-math.Pi) > 1e-9 {
		t.Errorf("Lerp crossed the long way: yaw = %v", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{X: 3, Y: 0, Z: 4}
	n := v.Normalize()
	if math.Abs(n.Length()-1) > 1e-9 {
		t.Errorf("normalized length = %v, want 1", n.Length())
	}

	zero := Vec3{}
	if zero.Normalize() != zero {
		t.Error("normalizing the zero vector should return zero")
	}
}
