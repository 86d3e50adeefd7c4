package tracking

import "math"

// Matcher pairs upstream and downstream triplets whose extrapolations to Z
// agree within Cut in x and y. A positive Isolation also requires both
// triplets to have no other triplet of their own set closer than that at Z.
type Matcher struct {
	Cut       float64
	Isolation float64
	Z         float64
}

// Pair is a matched couple of triplets and their separation at the match z.
type Pair struct {
	Up, Down Triplet
	DX, DY   float64
}

// MatchStats counts the fate of every candidate pair.
type MatchStats struct {
	Candidates      int
	FailedCut       int
	NotIsolatedUp   int
	NotIsolatedDown int
	Accepted        int
}

func (s *MatchStats) Add(o MatchStats) {
	s.Candidates += o.Candidates
	s.FailedCut += o.FailedCut
	s.NotIsolatedUp += o.NotIsolatedUp
	s.NotIsolatedDown += o.NotIsolatedDown
	s.Accepted += o.Accepted
}

// Pairs returns the accepted pairs without the plane-order check of Track,
// so the two sets may share a plane.
func (m Matcher) Pairs(up, down []Triplet) ([]Pair, MatchStats) {
	var (
		pairs []Pair
		stats MatchStats
	)
	upIsolated := isolation(up, m.Z, m.Isolation)
	downIsolated := isolation(down, m.Z, m.Isolation)
	for i, u := range up {
		for j, d := range down {
			stats.Candidates++
			dx := d.XAt(m.Z) - u.XAt(m.Z)
			dy := d.YAt(m.Z) - u.YAt(m.Z)
			if math.Abs(dx) > m.Cut || math.Abs(dy) > m.Cut {
				stats.FailedCut++
				continue
			}
			if !upIsolated[i] {
				stats.NotIsolatedUp++
				continue
			}
			if !downIsolated[j] {
				stats.NotIsolatedDown++
				continue
			}
			stats.Accepted++
			pairs = append(pairs, Pair{Up: u, Down: d, DX: dx, DY: dy})
		}
	}
	return pairs, stats
}

// Match returns the accepted pairs as tracks. Pairs whose planes overlap are
// counted as failing the cut.
func (m Matcher) Match(up, down []Triplet) ([]Track, MatchStats) {
	pairs, stats := m.Pairs(up, down)
	tracks := make([]Track, 0, len(pairs))
	for _, p := range pairs {
		t, err := NewTrack(p.Up, p.Down, m.Z)
		if err != nil {
			stats.Accepted--
			stats.FailedCut++
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, stats
}

func isolation(triplets []Triplet, z, radius float64) []bool {
	iso := make([]bool, len(triplets))
	for i, t := range triplets {
		iso[i] = IsTripletIsolated(t, triplets, z, radius)
	}
	return iso
}

// IsTripletIsolated reports whether no triplet of others other than t itself
// passes within radius of t at z. A radius <= 0 disables the check.
func IsTripletIsolated(t Triplet, others []Triplet, z, radius float64) bool {
	if radius <= 0 {
		return true
	}
	x, y := t.XAt(z), t.YAt(z)
	for _, o := range others {
		if o == t {
			continue
		}
		if math.Hypot(o.XAt(z)-x, o.YAt(z)-y) < radius {
			return false
		}
	}
	return true
}
