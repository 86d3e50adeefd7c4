package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/decibelcooper/eutel/histos"
	"github.com/decibelcooper/eutel/pixel"
	"github.com/decibelcooper/eutel/shape"
)

// ClusterAnalysis histograms cluster size, charge and shape per plane and
// reports how often each shape occurs compared with its mirror image.
type ClusterAnalysis struct {
	nplanes  int
	planeOf  func(sensorID int) (int, bool)
	free     []shape.Cluster
	oriented []shape.Cluster
	mirrors  [2][]int

	// filled by the collector only
	orientedCounts []int
}

func NewClusterAnalysis(ctx Context) (Processor, error) {
	oriented := shape.FindReferenceClustersOriented(ctx.Config.MaxShapePixels)
	p := &ClusterAnalysis{
		nplanes:        ctx.Geo.NPlanes(),
		planeOf:        ctx.Geo.PlaneOf,
		free:           shape.FindReferenceClusters(ctx.Config.MaxShapePixels),
		oriented:       oriented,
		orientedCounts: make([]int, len(oriented)),
	}
	p.mirrors[shape.AxisX] = shape.SymmetryPairs(oriented, shape.AxisX)
	p.mirrors[shape.AxisY] = shape.SymmetryPairs(oriented, shape.AxisY)
	return p, nil
}

func (p *ClusterAnalysis) Name() string { return "ClusterAnalysis" }

// ShapeName is the shape index histogram of a plane. Bin -1 counts shapes
// outside the catalogue.
func ShapeName(plane int) string { return planeName("cluster_shape_plane%d", plane) }

func (p *ClusterAnalysis) Book(reg *histos.Registry) {
	n := len(p.free)
	for i := 0; i < p.nplanes; i++ {
		reg.Book1D(planeName("cluster_size_plane%d", i), fmt.Sprintf("cluster size, plane %d;pixels", i), 20, 0.5, 20.5)
		reg.Book1D(planeName("cluster_charge_plane%d", i), fmt.Sprintf("cluster charge, plane %d", i), 100, 0, 100)
		reg.Book1D(planeName("cluster_seed_fraction_plane%d", i), fmt.Sprintf("seed pixel charge fraction, plane %d", i), 50, 0, 1.0001)
		reg.Book1D(planeName("cluster_xsize_plane%d", i), fmt.Sprintf("cluster width in x, plane %d;pixels", i), 10, 0.5, 10.5)
		reg.Book1D(planeName("cluster_ysize_plane%d", i), fmt.Sprintf("cluster width in y, plane %d;pixels", i), 10, 0.5, 10.5)
		reg.Book1D(planeName("nclusters_plane%d", i), fmt.Sprintf("clusters on plane %d", i), 51, -0.5, 50.5)
		reg.Book1D(ShapeName(i), fmt.Sprintf("cluster shape, plane %d", i), n+1, -1.5, float64(n)-0.5)
	}
	reg.Book1D("shape_asymmetry_x", "left-right shape asymmetry", 40, -1, 1)
	reg.Book1D("shape_asymmetry_y", "up-down shape asymmetry", 40, -1, 1)
}

type clusterInfo struct {
	plane        int
	size         int
	xSize, ySize int
	charge       float64
	seedFraction float64
	shape        int
	oriented     int
}

type clusterOutcome struct {
	p        *ClusterAnalysis
	clusters []clusterInfo
	perPlane []int
	unknown  int
}

func (p *ClusterAnalysis) Process(evt Event) (Outcome, error) {
	if evt.Sensors == nil {
		return nil, nil
	}
	out := &clusterOutcome{p: p, perPlane: make([]int, p.nplanes)}
	for _, s := range evt.Sensors {
		plane, ok := p.planeOf(s.SensorID)
		if !ok {
			out.unknown++
			continue
		}
		for _, c := range pixel.Clusterize(s.SensorID, s.Pixels) {
			sh := c.Shape()
			xs, ys := c.ClusterSize()
			seedFraction := math.NaN()
			if seed, ok := c.Seed(); ok && c.TotalCharge() > 0 {
				seedFraction = seed.Charge() / c.TotalCharge()
			}
			out.clusters = append(out.clusters, clusterInfo{
				plane:        plane,
				size:         c.Len(),
				xSize:        xs,
				ySize:        ys,
				charge:       c.TotalCharge(),
				seedFraction: seedFraction,
				shape:        shape.WhichClusterShape(sh, p.free),
				oriented:     shape.WhichOrientedShape(sh, p.oriented),
			})
			out.perPlane[plane]++
		}
	}
	return out, nil
}

func (o *clusterOutcome) Fill(reg *histos.Registry, sum *Summary) {
	for plane, n := range o.perPlane {
		reg.Fill1D(planeName("nclusters_plane%d", plane), float64(n))
	}
	for _, c := range o.clusters {
		reg.Fill1D(planeName("cluster_size_plane%d", c.plane), float64(c.size))
		reg.Fill1D(planeName("cluster_xsize_plane%d", c.plane), float64(c.xSize))
		reg.Fill1D(planeName("cluster_ysize_plane%d", c.plane), float64(c.ySize))
		reg.Fill1D(planeName("cluster_charge_plane%d", c.plane), c.charge)
		if !math.IsNaN(c.seedFraction) {
			reg.Fill1D(planeName("cluster_seed_fraction_plane%d", c.plane), c.seedFraction)
		}
		reg.Fill1D(ShapeName(c.plane), float64(c.shape))
		if c.shape < 0 {
			sum.Count("unknown cluster shapes", 1)
		}
		if c.oriented >= 0 {
			o.p.orientedCounts[c.oriented]++
		}
	}
	sum.Count("clusters", len(o.clusters))
	sum.Count("clusters on unknown sensors", o.unknown)
}

// Asymmetry is (n - m) / (n + m) for a shape seen n times and its mirror
// image seen m times.
type Asymmetry struct {
	Shape, Mirror int
	N, M          int
}

func (a Asymmetry) Value() float64 {
	return float64(a.N-a.M) / float64(a.N+a.M)
}

// Asymmetries lists every shape that differs from its mirror image about
// axis and was seen at least once, each pair once.
func (p *ClusterAnalysis) Asymmetries(axis shape.Axis) []Asymmetry {
	var out []Asymmetry
	for i, j := range p.mirrors[axis] {
		if j <= i {
			continue
		}
		a := Asymmetry{Shape: i, Mirror: j, N: p.orientedCounts[i], M: p.orientedCounts[j]}
		if a.N+a.M == 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (p *ClusterAnalysis) End(reg *histos.Registry, sum *Summary) {
	for _, axis := range []shape.Axis{shape.AxisX, shape.AxisY} {
		name := "shape_asymmetry_" + axis.String()
		var values, weights []float64
		for _, a := range p.Asymmetries(axis) {
			w := float64(a.N + a.M)
			reg.Fill1D(name, a.Value(), w)
			values = append(values, a.Value())
			weights = append(weights, w)
			sum.Note(fmt.Sprintf("ClusterAnalysis: %s mirror %v (%d) vs %v (%d): asymmetry %+.3f",
				axis, p.oriented[a.Shape], a.N, p.oriented[a.Mirror], a.M, a.Value()))
		}
		if len(values) > 1 {
			mean, std := stat.MeanStdDev(values, weights)
			sum.Note(fmt.Sprintf("ClusterAnalysis: %s mean asymmetry %+.3f, spread %.3f", axis, mean, std))
		}
	}
}
