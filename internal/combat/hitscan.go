package combat

import (
	"math"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
)

// HeadshotMultiplier doubles damage when the ray strikes the head volume.
const HeadshotMultiplier = 2

// Sphere is a bounding volume in world space.
type Sphere struct {
	Center protocol.Vec3
	Radius float64
}

// Target is one shootable remote proxy: a body volume plus a designated
// head volume.
type Target struct {
	ID   string
	Body Sphere
	Head Sphere
}

// HitResult describes the first valid intersection of a shot.
type HitResult struct {
	TargetID string
	Headshot bool
	Damage   int
	Distance float64
}

// Resolve intersects a ray from origin along dir against every target and
// returns the nearest hit with its damage. The head volume is checked once
// per target; a head strike yields double damage regardless of whether the
// ray would also pass through the body.
func Resolve(origin, dir protocol.Vec3, baseDamage int, targets []Target) (HitResult, bool) {
	dir = dir.Normalize()
	if dir.Length() == 0 {
		return HitResult{}, false
	}

	best := HitResult{Distance: math.Inf(1)}
	found := false

	for _, t := range targets {
		headDist, headHit := raySphere(origin, dir, t.Head)
		bodyDist, bodyHit := raySphere(origin, dir, t.Body)

		var dist float64
		var headshot bool
		switch {
		case headHit && (!bodyHit || headDist <= bodyDist):
			dist, headshot = headDist, true
		case headHit:
			// Body edge is nearer, but the head volume is still on the ray:
			// the head match wins the multiplier.
			dist, headshot = bodyDist, true
		case bodyHit:
			dist, headshot = bodyDist, false
		default:
			continue
		}

		if dist < best.Distance {
			dmg := baseDamage
			if headshot {
				dmg *= HeadshotMultiplier
			}
			best = HitResult{TargetID: t.ID, Headshot: headshot, Damage: dmg, Distance: dist}
			found = true
		}
	}

	return best, found
}

// raySphere returns the distance along the ray to the nearest intersection
// with s, if any. dir must be unit length.
func raySphere(origin, dir protocol.Vec3, s Sphere) (float64, bool) {
	oc := origin.Sub(s.Center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - s.Radius*s.Radius

	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq // origin inside the sphere
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
