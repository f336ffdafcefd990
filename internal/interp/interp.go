// Package interp owns one visual proxy per remote player and produces
// smoothly interpolated pose and animation state every frame. It has no
// network awareness: the session layer feeds it targets, the renderer
// reads its proxies.
package interp

import (
	"math"
	"sync"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
)

// Tuning constants.
const (
	// BlendFactor is applied once per Tick call, not per elapsed second.
	// Smoothing speed deliberately tracks the caller's tick rate.
	BlendFactor = 0.2

	// MoveThreshold is the horizontal speed (units/s) above which an entity
	// counts as moving for gait purposes.
	MoveThreshold = 1.0

	// AffordanceRadius is the distance beyond which name tags and health
	// bars are hidden.
	AffordanceRadius = 50.0

	// gaitFrequency scales the leg-swing phase accumulator (rad/s at 1 u/s).
	gaitFrequency = 8.0
)

// Pose is a position plus rotation.
type Pose struct {
	Position protocol.Vec3
	Rotation protocol.Euler
}

// Proxy is the interpolated visual state of one remote player. All fields
// are owned by the Manager; renderers read snapshots via ProxyState.
type proxy struct {
	id   string
	name string

	pose   Pose
	target Pose

	lastSample protocol.Vec3 // position at previous tick, for displacement
	speed      float64       // rolling horizontal speed estimate
	gaitPhase  float64       // retained across idle so a resumed walk continues
	moving     bool
	dead       bool

	showAffordances bool
	affordanceYaw   float64 // yaw for tags/bars to face the viewer
}

// ProxyState is a read-only snapshot handed to the renderer.
type ProxyState struct {
	ID   string
	Name string
	Pose Pose

	Speed  float64
	Moving bool
	Dead   bool

	// LimbSwing is the sinusoidal leg-swing angle; limbs on opposite sides
	// use opposite signs.
	LimbSwing float64

	ShowAffordances bool
	AffordanceYaw   float64
}

// Manager tracks every registered proxy.
type Manager struct {
	mu      sync.Mutex
	proxies map[string]*proxy
}

// NewManager creates an empty proxy set.
func NewManager() *Manager {
	return &Manager{proxies: make(map[string]*proxy)}
}

// Register creates a proxy for peerID at its initial replicated state.
// Registering an existing id resets the proxy.
func (m *Manager) Register(peerID string, initial protocol.PlayerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pose := Pose{Position: initial.Position, Rotation: initial.Rotation}
	m.proxies[peerID] = &proxy{
		id:         peerID,
		name:       initial.Name,
		pose:       pose,
		target:     pose,
		lastSample: initial.Position,
		dead:       !initial.Alive,
	}
}

// Unregister removes the proxy for peerID. Safe to call twice; operations
// on unknown ids are no-ops because network events can race removal.
func (m *Manager) Unregister(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proxies, peerID)
}

// SetTarget replaces the interpolation target. The visual pose is not
// snapped; Tick blends toward it.
func (m *Manager) SetTarget(peerID string, pos protocol.Vec3, rot protocol.Euler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.proxies[peerID]; ok {
		p.target = Pose{Position: pos, Rotation: rot}
	}
}

// SetDead toggles the frozen ground-level pose. While dead, interpolation
// and gait animation halt for that entity.
func (m *Manager) SetDead(peerID string, dead bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proxies[peerID]
	if !ok {
		return
	}
	p.dead = dead
	if dead {
		p.pose.Position.Y = 0
		p.moving = false
		p.speed = 0
	}
}

// Tick advances every live proxy by one frame: exponential pose blend,
// speed estimation from displacement, gait phase accumulation, and
// viewer-relative affordance visibility. dt is the frame time in seconds.
func (m *Manager) Tick(dt float64, viewer protocol.Vec3) {
	if dt <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.proxies {
		if p.dead {
			continue
		}

		p.pose.Position = p.pose.Position.Lerp(p.target.Position, BlendFactor)
		p.pose.Rotation = p.pose.Rotation.Lerp(p.target.Rotation, BlendFactor)

		// Horizontal displacement since last tick drives the gait.
		dx := p.pose.Position.X - p.lastSample.X
		dz := p.pose.Position.Z - p.lastSample.Z
		p.speed = math.Sqrt(dx*dx+dz*dz) / dt
		p.lastSample = p.pose.Position

		p.moving = p.speed > MoveThreshold
		if p.moving {
			// Phase is never reset, so a walk resumed after standing still
			// continues from where the legs left off.
			p.gaitPhase += p.speed * gaitFrequency * dt
		}

		dvx := viewer.X - p.pose.Position.X
		dvz := viewer.Z - p.pose.Position.Z
		dist := math.Sqrt(dvx*dvx + dvz*dvz)
		p.showAffordances = dist <= AffordanceRadius
		if p.showAffordances {
			p.affordanceYaw = math.Atan2(dvx, dvz)
		}
	}
}

// Snapshot returns the renderable state of every proxy.
func (m *Manager) Snapshot() []ProxyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProxyState, 0, len(m.proxies))
	for _, p := range m.proxies {
		out = append(out, snapshotOf(p))
	}
	return out
}

// Proxy returns the renderable state of one proxy.
func (m *Manager) Proxy(peerID string) (ProxyState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proxies[peerID]
	if !ok {
		return ProxyState{}, false
	}
	return snapshotOf(p), true
}

// Len reports the number of registered proxies.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.proxies)
}

func snapshotOf(p *proxy) ProxyState {
	swing := 0.0
	if p.moving {
		swing = math.Sin(p.gaitPhase)
	}
	return ProxyState{
		ID:              p.id,
		Name:            p.name,
		Pose:            p.pose,
		Speed:           p.speed,
		Moving:          p.moving,
		Dead:            p.dead,
		LimbSwing:       swing,
		ShowAffordances: p.showAffordances,
		AffordanceYaw:   p.affordanceYaw,
	}
}
