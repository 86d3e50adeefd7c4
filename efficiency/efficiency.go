// Package efficiency measures plane efficiencies with tracks that bypass
// the plane under test.
package efficiency

import (
	"fmt"
	"math"

	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/tracking"
)

// PlaneSet names the triplets used to test one plane of a six-plane
// telescope. The two triplets share the Shared plane, where they are
// matched. Extrapolate selects the triplet projected onto the tested plane.
type PlaneSet struct {
	Tested      int
	First       [3]int
	Second      [3]int
	Shared      int
	Extrapolate int
}

var planeSets = [6]PlaneSet{
	{Tested: 0, First: [3]int{1, 2, 3}, Second: [3]int{3, 4, 5}, Shared: 3, Extrapolate: 0},
	{Tested: 1, First: [3]int{0, 2, 3}, Second: [3]int{3, 4, 5}, Shared: 3, Extrapolate: 0},
	{Tested: 2, First: [3]int{0, 1, 3}, Second: [3]int{3, 4, 5}, Shared: 3, Extrapolate: 0},
	{Tested: 3, First: [3]int{0, 1, 2}, Second: [3]int{2, 4, 5}, Shared: 2, Extrapolate: 1},
	{Tested: 4, First: [3]int{0, 1, 2}, Second: [3]int{2, 3, 5}, Shared: 2, Extrapolate: 1},
	{Tested: 5, First: [3]int{0, 1, 2}, Second: [3]int{2, 3, 4}, Shared: 2, Extrapolate: 1},
}

// PlaneSetFor returns the triplet layout for the tested plane.
func PlaneSetFor(tested int) (PlaneSet, error) {
	if tested < 0 || tested >= len(planeSets) {
		return PlaneSet{}, fmt.Errorf("efficiency: no plane set for plane %d", tested)
	}
	return planeSets[tested], nil
}

// Outcome is the classification of one matched triplet pair.
type Outcome struct {
	Plane     int
	X, Y      float64
	Distance  float64
	Efficient bool
}

// Weight is the profile fill weight of the outcome.
func (o Outcome) Weight() float64 {
	if o.Efficient {
		return 1
	}
	return 0
}

// Estimator finds, matches and extrapolates the bypass triplets. The match z
// is taken from the geometry; Matcher.Z is ignored. Radius is inclusive.
type Estimator struct {
	Geo     geometry.Provider
	Finder  tracking.Finder
	Matcher tracking.Matcher
	Radius  float64
}

// Estimate classifies every matched pair for the tested plane. Distance is
// +Inf when the tested plane has no hits.
func (e Estimator) Estimate(hits []tracking.Hit, tested int) ([]Outcome, tracking.MatchStats, error) {
	set, err := PlaneSetFor(tested)
	if err != nil {
		return nil, tracking.MatchStats{}, err
	}
	if e.Geo.NPlanes() != len(planeSets) {
		return nil, tracking.MatchStats{}, fmt.Errorf("efficiency: plane sets need %d planes, geometry has %d", len(planeSets), e.Geo.NPlanes())
	}

	first := e.Finder.Find(hits, set.First[0], set.First[1], set.First[2])
	second := e.Finder.Find(hits, set.Second[0], set.Second[1], set.Second[2])
	m := e.Matcher
	m.Z = e.Geo.Plane(set.Shared).Z
	pairs, stats := m.Pairs(first, second)

	candidates := tracking.OnPlane(hits, tested)
	z := e.Geo.Plane(tested).Z
	outcomes := make([]Outcome, 0, len(pairs))
	for _, p := range pairs {
		t := p.Up
		if set.Extrapolate == 1 {
			t = p.Down
		}
		x, y := t.XAt(z), t.YAt(z)
		dist := math.Inf(1)
		for _, h := range candidates {
			dist = math.Min(dist, math.Hypot(h.X-x, h.Y-y))
		}
		outcomes = append(outcomes, Outcome{
			Plane:     tested,
			X:         x,
			Y:         y,
			Distance:  dist,
			Efficient: dist <= e.Radius,
		})
	}
	return outcomes, stats, nil
}
