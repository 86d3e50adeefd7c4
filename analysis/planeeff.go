package analysis

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/efficiency"
	"github.com/decibelcooper/eutel/histos"
	"github.com/decibelcooper/eutel/tracking"
)

// PlaneEfficiency tests each configured plane with tracks built from the
// other five.
type PlaneEfficiency struct {
	planes    []int
	hitMaker  HitMaker
	estimator efficiency.Estimator
	sizes     [][2]float64
	centres   [][2]float64
}

func NewPlaneEfficiency(ctx Context) (Processor, error) {
	if n := ctx.Geo.NPlanes(); n != 6 {
		return nil, fmt.Errorf("analysis: plane efficiency needs 6 planes, geometry has %d", n)
	}
	p := &PlaneEfficiency{
		planes:   append([]int(nil), ctx.Config.EffPlanes...),
		hitMaker: ctx.HitMaker(),
		estimator: efficiency.Estimator{
			Geo:     ctx.Geo,
			Finder:  tracking.Finder{ResidualCut: ctx.Cuts.TripletResidual, AngleCut: ctx.Cuts.Angle},
			Matcher: tracking.Matcher{Cut: ctx.Cuts.Match, Isolation: ctx.Cuts.Isolation},
			Radius:  ctx.Cuts.EffRadius,
		},
	}
	for i := 0; i < ctx.Geo.NPlanes(); i++ {
		pl := ctx.Geo.Plane(i)
		p.sizes = append(p.sizes, [2]float64{pl.SizeX(), pl.SizeY()})
		p.centres = append(p.centres, [2]float64{pl.PosX, pl.PosY})
	}
	return p, nil
}

func (p *PlaneEfficiency) Name() string { return "PlaneEfficiency" }

// EffName is the efficiency map of a tested plane.
func EffName(plane int) string { return planeName("eff_plane%d", plane) }

func (p *PlaneEfficiency) Book(reg *histos.Registry) {
	for _, plane := range p.planes {
		c, s := p.centres[plane], p.sizes[plane]
		reg.BookEfficiency(EffName(plane), fmt.Sprintf("efficiency of plane %d;x [mm];y [mm]", plane),
			40, c[0]-s[0]/2, c[0]+s[0]/2, 20, c[1]-s[1]/2, c[1]+s[1]/2)
		reg.Book1D(planeName("eff_dist_plane%d", plane), fmt.Sprintf("nearest hit distance, plane %d;mm", plane), 100, 0, 1)
	}
}

// CountEffUnassociated counts events the efficiency estimate skipped for a
// hit outside every plane.
const CountEffUnassociated = "efficiency events with unassociated hits"

type effUnassociated struct{}

func (effUnassociated) Fill(_ *histos.Registry, sum *Summary) {
	sum.Count(CountEffUnassociated, 1)
}

type effOutcome struct {
	outcomes []efficiency.Outcome
	stats    tracking.MatchStats
}

func (p *PlaneEfficiency) Process(evt Event) (Outcome, error) {
	hits, err := p.hitMaker.Make(evt)
	if errors.Is(err, tracking.ErrUnassociatedHit) {
		return effUnassociated{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := &effOutcome{}
	for _, plane := range p.planes {
		res, stats, err := p.estimator.Estimate(hits, plane)
		if err != nil {
			return nil, err
		}
		out.outcomes = append(out.outcomes, res...)
		out.stats.Add(stats)
	}
	return out, nil
}

func (o *effOutcome) Fill(reg *histos.Registry, sum *Summary) {
	for _, oc := range o.outcomes {
		reg.FillEff(EffName(oc.Plane), oc.X, oc.Y, oc.Weight())
		if !math.IsInf(oc.Distance, 1) {
			reg.Fill1D(planeName("eff_dist_plane%d", oc.Plane), oc.Distance)
		}
		sum.AddEfficiency(oc.Plane, oc.Efficient)
	}
	sum.Count("efficiency pairs not isolated", o.stats.NotIsolatedUp+o.stats.NotIsolatedDown)
}

func (p *PlaneEfficiency) End(reg *histos.Registry, sum *Summary) {
	for _, plane := range p.planes {
		e, ok := reg.Efficiency(EffName(plane))
		if !ok || e.Entries() == 0 {
			continue
		}
		eff, err := e.Value()
		sum.Note(fmt.Sprintf("PlaneEfficiency: plane %d map efficiency %.4f +- %.4f", plane, eff, err))
	}
}
