package tracking

import (
	"fmt"
	"math"
)

// Track joins an upstream and a downstream triplet matched at Z.
type Track struct {
	Up, Down Triplet
	Z        float64
}

// NewTrack checks that up ends before down begins.
func NewTrack(up, down Triplet, z float64) (Track, error) {
	if up.Last().Plane >= down.First().Plane {
		return Track{}, fmt.Errorf("tracking: upstream triplet ends on plane %d, downstream starts on plane %d", up.Last().Plane, down.First().Plane)
	}
	return Track{Up: up, Down: down, Z: z}, nil
}

func (t Track) KinkX() float64 {
	ux, _ := t.Up.Slope()
	dx, _ := t.Down.Slope()
	return dx - ux
}

func (t Track) KinkY() float64 {
	_, uy := t.Up.Slope()
	_, dy := t.Down.Slope()
	return dy - uy
}

// Kink is the total kink angle.
func (t Track) Kink() float64 {
	return math.Hypot(t.KinkX(), t.KinkY())
}

// DeltaAt is the separation of the two segments at z, downstream minus upstream.
func (t Track) DeltaAt(z float64) (dx, dy float64) {
	return t.Down.XAt(z) - t.Up.XAt(z), t.Down.YAt(z) - t.Up.YAt(z)
}

// Intersection is the midpoint of closest approach of the two segments.
// For parallel segments it is the midpoint at the match z.
func (t Track) Intersection() Point {
	ux, uy := t.Up.Slope()
	dx, dy := t.Down.Slope()
	// Lines p(z) = (x0 + sx z, y0 + sy z, z); solve d/dz1, d/dz2 of |p1(z1)-p2(z2)|^2.
	u0 := Point{X: t.Up.XAt(0), Y: t.Up.YAt(0)}
	d0 := Point{X: t.Down.XAt(0), Y: t.Down.YAt(0)}
	a := ux*ux + uy*uy + 1
	b := ux*dx + uy*dy + 1
	c := dx*dx + dy*dy + 1
	wx, wy := u0.X-d0.X, u0.Y-d0.Y
	d := ux*wx + uy*wy
	e := dx*wx + dy*wy
	den := a*c - b*b
	if math.Abs(den) < 1e-18 {
		return midpoint(t.Up.At(t.Z), t.Down.At(t.Z))
	}
	z1 := (b*e - c*d) / den
	z2 := (a*e - b*d) / den
	return midpoint(t.Up.At(z1), t.Down.At(z2))
}

func midpoint(p, q Point) Point {
	return Point{X: 0.5 * (p.X + q.X), Y: 0.5 * (p.Y + q.Y), Z: 0.5 * (p.Z + q.Z)}
}

// Hits returns the six hits of the track in z order.
func (t Track) Hits() []Hit {
	up, down := t.Up.Hits(), t.Down.Hits()
	return append(up[:], down[:]...)
}

// HitOn returns the hit of either triplet on plane.
func (t Track) HitOn(plane int) (Hit, bool) {
	if h, ok := t.Up.HitOn(plane); ok {
		return h, true
	}
	return t.Down.HitOn(plane)
}
