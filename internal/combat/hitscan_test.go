package combat

import (
	"math"
	"testing"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
)

func standingTarget(id string, x, z float64) Target {
	return Target{
		ID:   id,
		Body: Sphere{Center: protocol.Vec3{X: x, Y: 0.9, Z: z}, Radius: 0.5},
		Head: Sphere{Center: protocol.Vec3{X: x, Y: 1.6, Z: z}, Radius: 0.25},
	}
}

func TestResolveBodyShot(t *testing.T) {
	targets := []Target{standingTarget("t1", 10, 0)}
	origin := protocol.Vec3{Y: 0.9}
	dir := protocol.Vec3{X: 1}

	hit, ok := Resolve(origin, dir, 25, targets)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.TargetID != "t1" {
		t.Errorf("target = %q, want t1", hit.TargetID)
	}
	if hit.Headshot {
		t.Error("body shot flagged as headshot")
	}
	if hit.Damage != 25 {
		t.Errorf("damage = %d, want 25", hit.Damage)
	}
	if math.Abs(hit.Distance-9.5) > 1e-9 {
		t.Errorf("distance = %v, want 9.5", hit.Distance)
	}
}

func TestResolveHeadshotDoubles(t *testing.T) {
	targets := []Target{standingTarget("t1", 10, 0)}
	origin := protocol.Vec3{Y: 1.6}
	dir := protocol.Vec3{X: 1}

	hit, ok := Resolve(origin, dir, 25, targets)
	if !ok {
		t.Fatal("expected a hit")
	}
	if !hit.Headshot {
		t.Fatal("level shot at head height should be a headshot")
	}
	if hit.Damage != 50 {
		t.Errorf("damage = %d, want exactly double", hit.Damage)
	}
}

func TestResolveMiss(t *testing.T) {
	targets := []Target{standingTarget("t1", 10, 0)}

	// Fires past the target's side.
	if _, ok := Resolve(protocol.Vec3{Y: 0.9, Z: 5}, protocol.Vec3{X: 1}, 25, targets); ok {
		t.Error("shot offset by 5 units should miss")
	}

	// Fires directly away from the target.
	if _, ok := Resolve(protocol.Vec3{Y: 0.9}, protocol.Vec3{X: -1}, 25, targets); ok {
		t.Error("shot away from the target should miss")
	}
}

func TestResolveNearestTargetWins(t *testing.T) {
	targets := []Target{
		standingTarget("far", 20, 0),
		standingTarget("near", 8, 0),
	}

	hit, ok := Resolve(protocol.Vec3{Y: 0.9}, protocol.Vec3{X: 1}, 25, targets)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.TargetID != "near" {
		t.Errorf("hit %q, want the nearer target", hit.TargetID)
	}
}

func TestResolveZeroDirection(t *testing.T) {
	targets := []Target{standingTarget("t1", 10, 0)}
	if _, ok := Resolve(protocol.Vec3{}, protocol.Vec3{}, 25, targets); ok {
		t.Error("zero direction must not hit")
	}
}

func TestResolveUnnormalizedDirection(t *testing.T) {
	targets := []Target{standingTarget("t1", 10, 0)}

	hit, ok := Resolve(protocol.Vec3{Y: 0.9}, protocol.Vec3{X: 100}, 25, targets)
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(hit.Distance-9.5) > 1e-9 {
		t.Errorf("distance = %v, want 9.5 (direction should be normalized)", hit.Distance)
	}
}
