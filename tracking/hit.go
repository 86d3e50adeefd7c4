// Package tracking builds straight-line track segments from telescope hits:
// triplets on three planes, and tracks made of an upstream and a downstream
// triplet matched at a common z.
package tracking

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/geometry"
)

// ErrUnassociatedHit is returned when a hit lies on no telescope plane.
var ErrUnassociatedHit = errors.New("tracking: hit not associated with any plane")

// Hit is a reconstructed space point. Positions are in mm.
type Hit struct {
	X, Y, Z     float64
	Ex, Ey      float64
	Plane       int
	ClusterSize int
}

func (h Hit) String() string {
	return fmt.Sprintf("hit(plane=%d x=%.4f y=%.4f z=%.2f size=%d)", h.Plane, h.X, h.Y, h.Z, h.ClusterSize)
}

// AssignPlanes sets the plane index of every hit from its z position.
// It stops at the first hit that is farther than tolerance from any plane.
func AssignPlanes(hits []Hit, geo geometry.Provider, tolerance float64) error {
	for i := range hits {
		plane, ok := geo.PlaneAt(hits[i].Z, tolerance)
		if !ok {
			return errors.Wrapf(ErrUnassociatedHit, "z=%g", hits[i].Z)
		}
		hits[i].Plane = plane
	}
	return nil
}

// OnPlane returns the hits of the given plane, keeping their order.
func OnPlane(hits []Hit, plane int) []Hit {
	var out []Hit
	for _, h := range hits {
		if h.Plane == plane {
			out = append(out, h)
		}
	}
	return out
}

// CountPerPlane returns the number of hits found on each of nplanes planes.
func CountPerPlane(hits []Hit, nplanes int) []int {
	counts := make([]int, nplanes)
	for _, h := range hits {
		if h.Plane >= 0 && h.Plane < nplanes {
			counts[h.Plane]++
		}
	}
	return counts
}

// ScaleCut scales a cut tuned for 6 GeV beam and 20 mm plane spacing.
func ScaleCut(base, beamEnergy, spacing float64) float64 {
	return base * 6.0 / beamEnergy * spacing / 20.0
}
