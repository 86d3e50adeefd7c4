package tracking

import (
	"fmt"
	"math"
	"sort"
)

// Point is a position in the telescope frame.
type Point struct {
	X, Y, Z float64
}

// Triplet is a straight segment through three hits on distinct planes.
// The hits are kept ordered by z.
type Triplet struct {
	hits [3]Hit
}

// NewTriplet orders the hits by z. The three planes must differ.
func NewTriplet(a, b, c Hit) (Triplet, error) {
	if a.Plane == b.Plane || a.Plane == c.Plane || b.Plane == c.Plane {
		return Triplet{}, fmt.Errorf("tracking: triplet planes %d, %d, %d are not distinct", a.Plane, b.Plane, c.Plane)
	}
	t := Triplet{hits: [3]Hit{a, b, c}}
	sort.SliceStable(t.hits[:], func(i, j int) bool { return t.hits[i].Z < t.hits[j].Z })
	if t.hits[0].Z == t.hits[2].Z {
		return Triplet{}, fmt.Errorf("tracking: triplet hits all at z=%g", a.Z)
	}
	return t, nil
}

func (t Triplet) First() Hit  { return t.hits[0] }
func (t Triplet) Middle() Hit { return t.hits[1] }
func (t Triplet) Last() Hit   { return t.hits[2] }

// Hits returns the three hits in z order.
func (t Triplet) Hits() [3]Hit { return t.hits }

func (t Triplet) Planes() [3]int {
	return [3]int{t.hits[0].Plane, t.hits[1].Plane, t.hits[2].Plane}
}

// HitOn returns the hit on plane, if the triplet has one.
func (t Triplet) HitOn(plane int) (Hit, bool) {
	for _, h := range t.hits {
		if h.Plane == plane {
			return h, true
		}
	}
	return Hit{}, false
}

// Base is the midpoint between the first and last hits.
func (t Triplet) Base() Point {
	a, c := t.hits[0], t.hits[2]
	return Point{
		X: 0.5 * (a.X + c.X),
		Y: 0.5 * (a.Y + c.Y),
		Z: 0.5 * (a.Z + c.Z),
	}
}

// Slope is dx/dz and dy/dz between the first and last hits.
func (t Triplet) Slope() (sx, sy float64) {
	a, c := t.hits[0], t.hits[2]
	dz := c.Z - a.Z
	return (c.X - a.X) / dz, (c.Y - a.Y) / dz
}

// anchor is the extreme hit closest to z. Extrapolating from it returns the
// measured position exactly at either end.
func (t Triplet) anchor(z float64) Hit {
	a, c := t.hits[0], t.hits[2]
	if math.Abs(z-a.Z) <= math.Abs(z-c.Z) {
		return a
	}
	return c
}

func (t Triplet) XAt(z float64) float64 {
	sx, _ := t.Slope()
	h := t.anchor(z)
	return h.X + sx*(z-h.Z)
}

func (t Triplet) YAt(z float64) float64 {
	_, sy := t.Slope()
	h := t.anchor(z)
	return h.Y + sy*(z-h.Z)
}

// At extrapolates the segment to z.
func (t Triplet) At(z float64) Point {
	return Point{X: t.XAt(z), Y: t.YAt(z), Z: z}
}

// Residual is the offset of h from the segment at h.Z.
func (t Triplet) Residual(h Hit) (dx, dy float64) {
	return h.X - t.XAt(h.Z), h.Y - t.YAt(h.Z)
}

// MiddleResidual is the residual of the middle hit.
func (t Triplet) MiddleResidual() (dx, dy float64) {
	return t.Residual(t.hits[1])
}

func (t Triplet) String() string {
	sx, sy := t.Slope()
	b := t.Base()
	return fmt.Sprintf("triplet(planes=%v base=(%.4f,%.4f,%.2f) slope=(%.5f,%.5f))", t.Planes(), b.X, b.Y, b.Z, sx, sy)
}
