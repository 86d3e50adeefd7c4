package tracking

import "math"

// Finder searches triplets with a slope cut on the extreme hits and a
// residual cut on the middle hit. Cuts are inclusive.
type Finder struct {
	ResidualCut float64
	AngleCut    float64
}

// Find returns every triplet on planes p0, p1, p2 passing both cuts. p1 is
// the middle plane. All accepted middle hits of an extreme-hit pair are kept.
func (f Finder) Find(hits []Hit, p0, p1, p2 int) []Triplet {
	first := OnPlane(hits, p0)
	middle := OnPlane(hits, p1)
	last := OnPlane(hits, p2)

	var triplets []Triplet
	for _, a := range first {
		for _, c := range last {
			dz := math.Abs(c.Z - a.Z)
			if math.Abs(c.X-a.X) > f.AngleCut*dz || math.Abs(c.Y-a.Y) > f.AngleCut*dz {
				continue
			}
			for _, b := range middle {
				t, err := NewTriplet(a, b, c)
				if err != nil {
					continue
				}
				rx, ry := t.MiddleResidual()
				if math.Abs(rx) > f.ResidualCut || math.Abs(ry) > f.ResidualCut {
					continue
				}
				triplets = append(triplets, t)
			}
		}
	}
	return triplets
}

// FindTriplets is Finder.Find with explicit cuts.
func FindTriplets(hits []Hit, p0, p1, p2 int, residualCut, angleCut float64) []Triplet {
	return Finder{ResidualCut: residualCut, AngleCut: angleCut}.Find(hits, p0, p1, p2)
}
