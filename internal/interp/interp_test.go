package interp

import (
	"math"
	"testing"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
)

const dt = 1.0 / 60

func register(m *Manager, id string, pos protocol.Vec3) {
	m.Register(id, protocol.PlayerState{ID: id, Name: id, Position: pos, Alive: true})
}

// TestBlendConvergence verifies that a proxy closes in on its target by the
// blend factor every tick and effectively reaches it after enough frames.
func TestBlendConvergence(t *testing.T) {
	m := NewManager()
	register(m, "p1", protocol.Vec3{})
	m.SetTarget("p1", protocol.Vec3{X: 10}, protocol.Euler{})

	m.Tick(dt, protocol.Vec3{})
	p, _ := m.Proxy("p1")
	want := 10 * BlendFactor
	if math.Abs(p.Pose.Position.X-want) > 1e-9 {
		t.Fatalf("after one tick X = %v, want %v", p.Pose.Position.X, want)
	}

	for i := 0; i < 120; i++ {
		m.Tick(dt, protocol.Vec3{})
	}
	p, _ = m.Proxy("p1")
	if math.Abs(p.Pose.Position.X-10) > 0.01 {
		t.Errorf("proxy never converged: X = %v", p.Pose.Position.X)
	}
}

// TestGaitPhaseRetainedAcrossIdle verifies that limb swing resumes from the
// previous phase instead of resetting when movement stops and restarts.
func TestGaitPhaseRetainedAcrossIdle(t *testing.T) {
	m := NewManager()
	register(m, "p1", protocol.Vec3{})

	// Walk with a steadily receding target until the swing is near its
	// positive peak, i.e. the phase sits near π/2 (mod 2π).
	target := protocol.Vec3{}
	peaked := false
	for i := 0; i < 1000; i++ {
		target.X += 1
		m.SetTarget("p1", target, protocol.Euler{})
		m.Tick(dt, protocol.Vec3{})
		if p, _ := m.Proxy("p1"); p.Moving && p.LimbSwing > 0.9 {
			peaked = true
			break
		}
	}
	if !peaked {
		t.Fatal("limb swing never approached its peak while walking")
	}

	// Stand still: pin the target to the current pose and let speed decay.
	p, _ := m.Proxy("p1")
	m.SetTarget("p1", p.Pose.Position, protocol.Euler{})
	for i := 0; i < 30; i++ {
		m.Tick(dt, protocol.Vec3{})
	}
	idle, _ := m.Proxy("p1")
	if idle.Moving {
		t.Fatal("proxy should be idle at its target")
	}
	if idle.LimbSwing != 0 {
		t.Errorf("idle limb swing = %v, want 0", idle.LimbSwing)
	}

	// Resume with a small step: the phase increment for one slow tick is a
	// fraction of a radian, so a retained phase keeps the swing near its
	// peak. A phase reset to zero would show a near-zero swing instead.
	m.SetTarget("p1", idle.Pose.Position.Add(protocol.Vec3{X: 0.1}), protocol.Euler{})
	m.Tick(dt, protocol.Vec3{})
	resumed, _ := m.Proxy("p1")
	if !resumed.Moving {
		t.Fatal("proxy should be moving again")
	}
	if resumed.LimbSwing < 0.5 {
		t.Errorf("gait phase lost across idle: resumed swing = %v", resumed.LimbSwing)
	}
}

// TestDeadFreezesProxy verifies that a dead proxy drops to ground level and
// ignores interpolation until revived.
func TestDeadFreezesProxy(t *testing.T) {
	m := NewManager()
	register(m, "p1", protocol.Vec3{X: 5, Y: 2, Z: 5})

	m.SetDead("p1", true)
	p, _ := m.Proxy("p1")
	if !p.Dead {
		t.Fatal("proxy not marked dead")
	}
	if p.Pose.Position.Y != 0 {
		t.Errorf("dead proxy Y = %v, want 0", p.Pose.Position.Y)
	}

	// Targets during death must not move the body.
	m.SetTarget("p1", protocol.Vec3{X: 50}, protocol.Euler{})
	m.Tick(dt, protocol.Vec3{})
	p, _ = m.Proxy("p1")
	if p.Pose.Position.X != 5 {
		t.Errorf("dead proxy moved to X = %v", p.Pose.Position.X)
	}

	// Revival resumes interpolation toward the pending target.
	m.SetDead("p1", false)
	m.Tick(dt, protocol.Vec3{})
	p, _ = m.Proxy("p1")
	if p.Pose.Position.X <= 5 {
		t.Error("revived proxy did not resume interpolation")
	}
}

// TestUnknownIDsAreNoOps verifies that operations racing a removal are safe.
func TestUnknownIDsAreNoOps(t *testing.T) {
	m := NewManager()
	register(m, "p1", protocol.Vec3{})

	m.Unregister("p1")
	m.Unregister("p1") // double removal
	m.SetTarget("p1", protocol.Vec3{X: 1}, protocol.Euler{})
	m.SetDead("p1", true)
	m.Tick(dt, protocol.Vec3{})

	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
	if _, ok := m.Proxy("p1"); ok {
		t.Error("removed proxy still resolvable")
	}
}

// TestReregisterResets verifies that registering an existing id snaps the
// proxy to the fresh state.
func TestReregisterResets(t *testing.T) {
	m := NewManager()
	register(m, "p1", protocol.Vec3{})
	m.SetTarget("p1", protocol.Vec3{X: 10}, protocol.Euler{})
	for i := 0; i < 10; i++ {
		m.Tick(dt, protocol.Vec3{})
	}

	register(m, "p1", protocol.Vec3{X: -3})
	p, _ := m.Proxy("p1")
	if p.Pose.Position.X != -3 {
		t.Errorf("re-registered proxy at X = %v, want -3", p.Pose.Position.X)
	}
}

// TestAffordanceVisibility verifies the distance gate and that the yaw faces
// the viewer.
func TestAffordanceVisibility(t *testing.T) {
	m := NewManager()
	register(m, "near", protocol.Vec3{X: 10})
	register(m, "far", protocol.Vec3{X: AffordanceRadius * 3})
	m.SetTarget("near", protocol.Vec3{X: 10}, protocol.Euler{})
	m.SetTarget("far", protocol.Vec3{X: AffordanceRadius * 3}, protocol.Euler{})

	viewer := protocol.Vec3{}
	m.Tick(dt, viewer)

	near, _ := m.Proxy("near")
	if !near.ShowAffordances {
		t.Error("near proxy should show affordances")
	}
	// Viewer is along -X from the proxy: atan2(dx, dz) with dx<0, dz=0 is -π/2.
	if math.Abs(near.AffordanceYaw-math.Atan2(-10, 0)) > 1e-9 {
		t.Errorf("affordance yaw = %v", near.AffordanceYaw)
	}

	far, _ := m.Proxy("far")
	if far.ShowAffordances {
		t.Error("far proxy should hide affordances")
	}
}
