package combat

import "testing"

func intPtr(v int) *int { return &v }

// TestApplyDamageArmorFirst verifies the armor-then-health prediction and
// the no-correction path when the server agrees.
func TestApplyDamageArmorFirst(t *testing.T) {
	testCases := []struct {
		name         string
		health       int
		armor        int
		damage       int
		serverHealth *int
		serverArmor  *int
		wantHealth   int
		wantArmor    int
	}{
		{
			name:   "armor absorbs fully",
			health: 100, armor: 50, damage: 30,
			wantHealth: 100, wantArmor: 20,
		},
		{
			name:   "overflow spills to health",
			health: 80, armor: 20, damage: 30,
			wantHealth: 70, wantArmor: 0,
		},
		{
			name:   "health floors at zero",
			health: 10, armor: 0, damage: 50,
			wantHealth: 0, wantArmor: 0,
		},
		{
			name:   "matching server values leave prediction alone",
			health: 80, armor: 20, damage: 30,
			serverHealth: intPtr(70), serverArmor: intPtr(0),
			wantHealth: 70, wantArmor: 0,
		},
		{
			name:   "divergence inside tolerance is kept",
			health: 80, armor: 20, damage: 30,
			serverHealth: intPtr(69), serverArmor: intPtr(0),
			wantHealth: 70, wantArmor: 0,
		},
		{
			name:   "divergent server health snaps both values",
			health: 80, armor: 20, damage: 30,
			serverHealth: intPtr(60), serverArmor: intPtr(0),
			wantHealth: 60, wantArmor: 0,
		},
		{
			name:   "divergent server armor snaps both values",
			health: 100, armor: 50, damage: 30,
			serverHealth: intPtr(100), serverArmor: intPtr(5),
			wantHealth: 100, wantArmor: 5,
		},
		{
			name:   "omitted armor trusts the prediction",
			health: 80, armor: 20, damage: 30,
			serverHealth: intPtr(10), serverArmor: nil,
			wantHealth: 70, wantArmor: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker(nil)
			tr.health = tc.health
			tr.armor = tc.armor

			tr.ApplyDamage(tc.damage, "shooter", tc.serverHealth, tc.serverArmor)

			if got := tr.Health(); got != tc.wantHealth {
				t.Errorf("health = %d, want %d", got, tc.wantHealth)
			}
			if got := tr.Armor(); got != tc.wantArmor {
				t.Errorf("armor = %d, want %d", got, tc.wantArmor)
			}
		})
	}
}

// TestLastHitByTracksDamager verifies the most recent damager is recorded
// for hit indicators and cleared on respawn.
func TestLastHitByTracksDamager(t *testing.T) {
	tr := NewTracker(nil)
	if tr.LastHitBy() != "" {
		t.Errorf("fresh tracker lastHitBy = %q, want empty", tr.LastHitBy())
	}

	tr.ApplyDamage(10, "shooter-1", nil, nil)
	if tr.LastHitBy() != "shooter-1" {
		t.Errorf("lastHitBy = %q, want shooter-1", tr.LastHitBy())
	}

	tr.ApplyDamage(10, "shooter-2", nil, nil)
	if tr.LastHitBy() != "shooter-2" {
		t.Errorf("lastHitBy = %q, want shooter-2", tr.LastHitBy())
	}

	// Ignored damage must not overwrite the record.
	tr.ApplyDamage(0, "shooter-3", nil, nil)
	if tr.LastHitBy() != "shooter-2" {
		t.Errorf("lastHitBy after zero damage = %q, want shooter-2", tr.LastHitBy())
	}

	tr.Respawn()
	if tr.LastHitBy() != "" {
		t.Errorf("lastHitBy after respawn = %q, want empty", tr.LastHitBy())
	}
}

// TestApplyDamageWhileDead verifies that a dead tracker ignores damage.
func TestApplyDamageWhileDead(t *testing.T) {
	tr := NewTracker(nil)
	tr.Kill("k1")

	tr.ApplyDamage(30, "shooter", nil, nil)

	if tr.Health() != 0 || tr.Armor() != 0 {
		t.Errorf("dead tracker changed: %d/%d", tr.Health(), tr.Armor())
	}
}

func TestApplyDamageNonPositive(t *testing.T) {
	tr := NewTracker(nil)
	tr.ApplyDamage(0, "shooter", nil, nil)
	tr.ApplyDamage(-5, "shooter", nil, nil)
	if tr.Health() != MaxHealth {
		t.Errorf("health = %d, want %d", tr.Health(), MaxHealth)
	}
}

// TestKillRespawnCycle verifies the death-is-terminal rule and the respawn
// reset plus notification.
func TestKillRespawnCycle(t *testing.T) {
	notified := 0
	tr := NewTracker(func() { notified++ })

	tr.Kill("killer-1")
	if tr.Alive() {
		t.Fatal("tracker alive after Kill")
	}
	if tr.Health() != 0 || tr.Armor() != 0 {
		t.Errorf("death state = %d/%d, want 0/0", tr.Health(), tr.Armor())
	}
	if tr.KillerID() != "killer-1" {
		t.Errorf("killer = %q", tr.KillerID())
	}

	tr.Respawn()
	if !tr.Alive() {
		t.Fatal("tracker dead after Respawn")
	}
	if tr.Health() != MaxHealth || tr.Armor() != MaxArmor {
		t.Errorf("respawn state = %d/%d, want %d/%d", tr.Health(), tr.Armor(), MaxHealth, MaxArmor)
	}
	if tr.KillerID() != "" {
		t.Errorf("killer not cleared: %q", tr.KillerID())
	}
	if notified != 1 {
		t.Errorf("respawn notifications = %d, want 1", notified)
	}
}
