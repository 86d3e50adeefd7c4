package trackfit

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/decibelcooper/eutel/gbl"
	"github.com/decibelcooper/eutel/tracking"
)

// PlaneResult is the fit outcome on one telescope plane.
type PlaneResult struct {
	Plane    int
	Measured bool
	HasHit   bool
	Hit      tracking.Hit

	// Fitted position and the correction to the seed triplet.
	PredX, PredY float64
	CorrX, CorrY float64
	CovX, CovY   float64

	// Hit minus fitted position and its pull. On the DUT the pull is
	// unbiased, using the resolution and the fit covariance.
	ResX, ResY   float64
	PullX, PullY float64

	KinkX, KinkY float64
}

// FitResult summarizes one track fit.
type FitResult struct {
	Chi2       float64
	Ndf        int
	Prob       float64
	LostWeight float64
	Good       bool
	Planes     []PlaneResult
}

// Fitter builds and fits trajectories. Fits with a chi2 probability at or
// below ProbCut are returned with Good unset.
type Fitter struct {
	Builder       Builder
	ProbCut       float64
	DownWeighting string
}

func (f Fitter) Fit(track tracking.Track) (FitResult, error) {
	traj, labels, err := f.Builder.Build(track)
	if err != nil {
		return FitResult{}, errors.Wrap(err, "building trajectory")
	}
	res, err := gbl.Fit(traj, f.DownWeighting)
	if err != nil {
		return FitResult{}, errors.Wrap(err, "fitting trajectory")
	}

	out := FitResult{
		Chi2:       res.Chi2,
		Ndf:        res.Ndf,
		Prob:       Prob(res.Chi2, res.Ndf),
		LostWeight: res.LostWeight,
	}
	out.Good = out.Prob > f.ProbCut

	seed := track.Up
	for i, label := range labels {
		if label.Plane < 0 {
			continue
		}
		pr := res.Results(i)
		z := f.Builder.Material.Z[label.Plane]
		plane := PlaneResult{
			Plane:    label.Plane,
			Measured: label.Measured,
			CorrX:    pr.Offset[0],
			CorrY:    pr.Offset[1],
			CovX:     pr.Cov[0],
			CovY:     pr.Cov[1],
			PredX:    seed.XAt(z) + pr.Offset[0],
			PredY:    seed.YAt(z) + pr.Offset[1],
		}
		if sr, ok := res.ScatResults(i); ok {
			plane.KinkX, plane.KinkY = sr.Kink[0], sr.Kink[1]
		}
		if hit, ok := track.HitOn(label.Plane); ok {
			plane.HasHit = true
			plane.Hit = hit
			plane.ResX = hit.X - plane.PredX
			plane.ResY = hit.Y - plane.PredY
			if mr, ok := res.MeasResults(i); ok {
				plane.PullX = pull(mr.Residual[0], mr.ResErr[0])
				plane.PullY = pull(mr.Residual[1], mr.ResErr[1])
			} else {
				r := f.Builder.Resolution.For(hit.ClusterSize)
				plane.PullX = pull(plane.ResX, math.Sqrt(r*r+plane.CovX))
				plane.PullY = pull(plane.ResY, math.Sqrt(r*r+plane.CovY))
			}
		}
		out.Planes = append(out.Planes, plane)
	}
	return out, nil
}

// Plane returns the result on plane i.
func (r FitResult) Plane(i int) (PlaneResult, bool) {
	for _, p := range r.Planes {
		if p.Plane == i {
			return p, true
		}
	}
	return PlaneResult{}, false
}

// Prob is the chi2 upper tail probability. A fit without degrees of freedom
// has probability one.
func Prob(chi2 float64, ndf int) float64 {
	if ndf <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(ndf)}.Survival(chi2)
}

func pull(res, err float64) float64 {
	if err <= 0 {
		return math.NaN()
	}
	return res / err
}
