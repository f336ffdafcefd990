// Package combat applies locally predicted damage for immediate feedback and
// reconciles the prediction against later-arriving authoritative values.
package combat

import (
	"sync"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

// Maximum values restored on respawn.
const (
	MaxHealth = 100
	MaxArmor  = 100
)

// reconcileTolerance is the divergence (in units) beyond which the server
// value replaces the prediction. Divergence inside the tolerance is expected
// steady-state behavior, not an error.
const reconcileTolerance = 1

// Tracker holds the local player's predicted health and armor.
type Tracker struct {
	mu     sync.Mutex
	health int
	armor  int
	alive  bool

	lastHitBy string // most recent damager, for hit direction indicators
	killerID  string // set on death, for the kill feed

	// onRespawn is invoked outside the lock when Respawn resets state, so
	// the owner can notify the relay. Resurrecting remote visual state is
	// the proxy owner's job, driven by the same event.
	onRespawn func()
}

// NewTracker creates a live tracker at full health and no armor.
func NewTracker(onRespawn func()) *Tracker {
	return &Tracker{health: MaxHealth, alive: true, onRespawn: onRespawn}
}

// ApplyDamage applies amount optimistically: armor absorbs 1:1 up to its
// current value, the remainder comes off health, floored at zero. If the
// server supplied both health and armor, the prediction is checked against
// them and snapped when either diverges by more than the tolerance. A
// message without armor means the server is not tracking armor; the local
// prediction is trusted outright.
func (t *Tracker) ApplyDamage(amount int, shooterID string, serverHealth, serverArmor *int) {
	if amount <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.alive {
		return
	}

	absorbed := amount
	if absorbed > t.armor {
		absorbed = t.armor
	}
	t.armor -= absorbed
	t.health -= amount - absorbed
	if t.health < 0 {
		t.health = 0
	}

	if serverHealth != nil && serverArmor != nil {
		if abs(t.health-*serverHealth) > reconcileTolerance || abs(t.armor-*serverArmor) > reconcileTolerance {
			util.LogDebug("combat: prediction %d/%d corrected to %d/%d",
				t.health, t.armor, *serverHealth, *serverArmor)
			t.health = *serverHealth
			t.armor = *serverArmor
		}
	}
	t.lastHitBy = shooterID
}

// Kill marks local death. Terminal until Respawn.
func (t *Tracker) Kill(killerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive = false
	t.health = 0
	t.armor = 0
	t.killerID = killerID
}

// Respawn resets health and armor to maximum and notifies outward.
func (t *Tracker) Respawn() {
	t.mu.Lock()
	t.health = MaxHealth
	t.armor = MaxArmor
	t.alive = true
	t.lastHitBy = ""
	t.killerID = ""
	notify := t.onRespawn
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Health returns the predicted health for the HUD.
func (t *Tracker) Health() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.health
}

// Armor returns the predicted armor for the HUD.
func (t *Tracker) Armor() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armor
}

// Alive reports whether the local player is in play.
func (t *Tracker) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

// LastHitBy returns the identity of the most recent damager, or "".
func (t *Tracker) LastHitBy() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastHitBy
}

// KillerID returns the identity that caused the current death, or "".
func (t *Tracker) KillerID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.killerID
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
