package analysis

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/histos"
	"github.com/decibelcooper/eutel/trackfit"
	"github.com/decibelcooper/eutel/tracking"
)

// Counter names of the track reconstruction.
const (
	CountTooManyClusters = "too many clusters"
	CountUnassociated    = "unassociated hits"
	CountTriplets        = "triplets"
	CountDriplets        = "driplets"
	CountMatchFailed     = "match cut failed"
	CountNotIsolated     = "triplets not isolated"
	CountTracks          = "tracks"
	CountFitFailed       = "fits failed"
	CountFitBelowProb    = "fits below prob cut"
	CountGoodFits        = "good fits"
)

// TripletGBL finds triplets on planes 0-1-2 and driplets on planes 3-4-5,
// matches them between planes 2 and 3 and fits every track with broken
// lines.
type TripletGBL struct {
	nplanes     int
	dut         int
	maxPerPlane int
	hitMaker    HitMaker
	finder      tracking.Finder
	matcher     tracking.Matcher
	fitter      trackfit.Fitter
}

func NewTripletGBL(ctx Context) (Processor, error) {
	n := ctx.Geo.NPlanes()
	if n != 6 {
		return nil, fmt.Errorf("analysis: triplet reconstruction needs 6 planes, geometry has %d", n)
	}
	cfg := ctx.Config
	zs := ctx.Geo.Positions()
	return &TripletGBL{
		nplanes:     n,
		dut:         cfg.DUTPlane,
		maxPerPlane: cfg.MaxClustersPerPlane,
		hitMaker:    ctx.HitMaker(),
		finder:      tracking.Finder{ResidualCut: ctx.Cuts.TripletResidual, AngleCut: ctx.Cuts.Angle},
		matcher: tracking.Matcher{
			Cut:       ctx.Cuts.Match,
			Isolation: ctx.Cuts.Isolation,
			Z:         0.5 * (zs[2] + zs[3]),
		},
		fitter: trackfit.Fitter{
			Builder:       trackfit.Builder{Material: ctx.Material, Resolution: ctx.Resolution, DUT: cfg.DUTPlane},
			ProbCut:       cfg.ProbChi2Cut,
			DownWeighting: cfg.DownWeighting,
		},
	}, nil
}

func (p *TripletGBL) Name() string { return "TripletGBL" }

func planeName(format string, plane int) string {
	return fmt.Sprintf(format, plane)
}

func (p *TripletGBL) Book(reg *histos.Registry) {
	for i := 0; i < p.nplanes; i++ {
		reg.Book1D(planeName("nhits_plane%d", i), fmt.Sprintf("hits on plane %d", i), 51, -0.5, 50.5)
		reg.Book1D(planeName("gbl_res_x_plane%d", i), fmt.Sprintf("GBL x residual, plane %d;mm", i), 200, -0.1, 0.1)
		reg.Book1D(planeName("gbl_res_y_plane%d", i), fmt.Sprintf("GBL y residual, plane %d;mm", i), 200, -0.1, 0.1)
		reg.Book1D(planeName("gbl_pull_x_plane%d", i), fmt.Sprintf("GBL x pull, plane %d", i), 100, -10, 10)
		reg.Book1D(planeName("gbl_pull_y_plane%d", i), fmt.Sprintf("GBL y pull, plane %d", i), 100, -10, 10)
		reg.Book1D(planeName("gbl_kink_x_plane%d", i), fmt.Sprintf("GBL x kink, plane %d;rad", i), 100, -0.005, 0.005)
		reg.Book1D(planeName("gbl_kink_y_plane%d", i), fmt.Sprintf("GBL y kink, plane %d;rad", i), 100, -0.005, 0.005)
	}
	reg.Book1D("triplet_dx", "triplet middle residual x;mm", 100, -0.5, 0.5)
	reg.Book1D("triplet_dy", "triplet middle residual y;mm", 100, -0.5, 0.5)
	reg.Book1D("driplet_dx", "driplet middle residual x;mm", 100, -0.5, 0.5)
	reg.Book1D("driplet_dy", "driplet middle residual y;mm", 100, -0.5, 0.5)
	reg.Book1D("ntriplets", "triplets per event", 51, -0.5, 50.5)
	reg.Book1D("ndriplets", "driplets per event", 51, -0.5, 50.5)
	reg.Book1D("match_dx", "driplet - triplet at match z, x;mm", 100, -1, 1)
	reg.Book1D("match_dy", "driplet - triplet at match z, y;mm", 100, -1, 1)
	reg.Book1D("ntracks", "tracks per event", 31, -0.5, 30.5)
	reg.Book1D("kink_x", "track kink x;rad", 100, -0.01, 0.01)
	reg.Book1D("kink_y", "track kink y;rad", 100, -0.01, 0.01)
	reg.Book1D("gbl_chi2ndf", "GBL chi2/ndf", 100, 0, 10)
	reg.Book1D("gbl_prob", "GBL fit probability", 100, 0, 1)
	reg.Book2D("track_xy", "track intersection;x [mm];y [mm]", 120, -12, 12, 60, -6, 6)
	if p.dut >= 0 {
		reg.BookResGrid("dut_res_x_map", "DUT x residual RMS;x [mm];y [mm]", 60, -12, 12, 30, -6, 6)
		reg.BookResGrid("dut_res_y_map", "DUT y residual RMS;x [mm];y [mm]", 60, -12, 12, 30, -6, 6)
	}
}

type tripletOutcome struct {
	p          *TripletGBL
	counts     []int
	tooMany    bool
	triplets   [][2]float64
	driplets   [][2]float64
	stats      tracking.MatchStats
	tracks     []tracking.Track
	fits       []trackfit.FitResult
	failedFits int
}

func (p *TripletGBL) Process(evt Event) (Outcome, error) {
	hits, err := p.hitMaker.Make(evt)
	if errors.Is(err, tracking.ErrUnassociatedHit) {
		return unassociated{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := &tripletOutcome{p: p, counts: tracking.CountPerPlane(hits, p.nplanes)}
	if p.maxPerPlane > 0 {
		for _, n := range out.counts {
			if n > p.maxPerPlane {
				out.tooMany = true
				return out, nil
			}
		}
	}

	up := p.finder.Find(hits, 0, 1, 2)
	down := p.finder.Find(hits, 3, 4, 5)
	for _, t := range up {
		dx, dy := t.MiddleResidual()
		out.triplets = append(out.triplets, [2]float64{dx, dy})
	}
	for _, t := range down {
		dx, dy := t.MiddleResidual()
		out.driplets = append(out.driplets, [2]float64{dx, dy})
	}

	out.tracks, out.stats = p.matcher.Match(up, down)
	for _, track := range out.tracks {
		fit, err := p.fitter.Fit(track)
		if err != nil {
			out.failedFits++
			continue
		}
		out.fits = append(out.fits, fit)
	}
	return out, nil
}

type unassociated struct{}

func (unassociated) Fill(_ *histos.Registry, sum *Summary) {
	sum.Count(CountUnassociated, 1)
}

func (o *tripletOutcome) Fill(reg *histos.Registry, sum *Summary) {
	for i, n := range o.counts {
		reg.Fill1D(planeName("nhits_plane%d", i), float64(n))
	}
	if o.tooMany {
		sum.Count(CountTooManyClusters, 1)
		return
	}

	reg.Fill1D("ntriplets", float64(len(o.triplets)))
	reg.Fill1D("ndriplets", float64(len(o.driplets)))
	for _, d := range o.triplets {
		reg.Fill1D("triplet_dx", d[0])
		reg.Fill1D("triplet_dy", d[1])
	}
	for _, d := range o.driplets {
		reg.Fill1D("driplet_dx", d[0])
		reg.Fill1D("driplet_dy", d[1])
	}
	sum.Count(CountTriplets, len(o.triplets))
	sum.Count(CountDriplets, len(o.driplets))
	sum.Count(CountMatchFailed, o.stats.FailedCut)
	sum.Count(CountNotIsolated, o.stats.NotIsolatedUp+o.stats.NotIsolatedDown)

	reg.Fill1D("ntracks", float64(len(o.tracks)))
	sum.Count(CountTracks, len(o.tracks))
	for _, t := range o.tracks {
		dx, dy := t.DeltaAt(t.Z)
		reg.Fill1D("match_dx", dx)
		reg.Fill1D("match_dy", dy)
		reg.Fill1D("kink_x", t.KinkX())
		reg.Fill1D("kink_y", t.KinkY())
		at := t.Intersection()
		reg.Fill2D("track_xy", at.X, at.Y)
	}

	sum.Count(CountFitFailed, o.failedFits)
	for _, fit := range o.fits {
		if fit.Ndf > 0 {
			reg.Fill1D("gbl_chi2ndf", fit.Chi2/float64(fit.Ndf))
		}
		reg.Fill1D("gbl_prob", fit.Prob)
		if !fit.Good {
			sum.Count(CountFitBelowProb, 1)
			continue
		}
		sum.Count(CountGoodFits, 1)
		for _, pr := range fit.Planes {
			reg.Fill1D(planeName("gbl_kink_x_plane%d", pr.Plane), pr.KinkX)
			reg.Fill1D(planeName("gbl_kink_y_plane%d", pr.Plane), pr.KinkY)
			if !pr.HasHit {
				continue
			}
			reg.Fill1D(planeName("gbl_res_x_plane%d", pr.Plane), pr.ResX)
			reg.Fill1D(planeName("gbl_res_y_plane%d", pr.Plane), pr.ResY)
			reg.Fill1D(planeName("gbl_pull_x_plane%d", pr.Plane), pr.PullX)
			reg.Fill1D(planeName("gbl_pull_y_plane%d", pr.Plane), pr.PullY)
			if pr.Plane == o.p.dut {
				reg.FillRes("dut_res_x_map", pr.PredX, pr.PredY, pr.ResX)
				reg.FillRes("dut_res_y_map", pr.PredX, pr.PredY, pr.ResY)
			}
		}
	}
}

func (p *TripletGBL) End(reg *histos.Registry, sum *Summary) {
	if n := sum.Counter(CountTracks); n > 0 {
		sum.Note(fmt.Sprintf("TripletGBL: %d of %d tracks fitted with prob > cut", sum.Counter(CountGoodFits), n))
	}
}
