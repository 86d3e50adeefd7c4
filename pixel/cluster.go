package pixel

import (
	"iter"
	"math"

	"github.com/decibelcooper/eutel/shape"
)

// Like is what a cluster needs from its pixels.
type Like interface {
	Coords() (x, y int)
	Charge() float64
	Geometry() (Geometry, bool)
}

// Cluster is a group of pixels read out by one sensor.
type Cluster[P Like] struct {
	SensorID int
	pixels   []P
}

func NewCluster[P Like](sensorID int, pixels ...P) Cluster[P] {
	return Cluster[P]{SensorID: sensorID, pixels: append([]P(nil), pixels...)}
}

func (c *Cluster[P]) Add(p P) {
	c.pixels = append(c.pixels, p)
}

func (c Cluster[P]) Len() int {
	return len(c.pixels)
}

// Pixels iterates over the stored pixels. The sequence can be ranged over
// any number of times.
func (c Cluster[P]) Pixels() iter.Seq[P] {
	return func(yield func(P) bool) {
		for _, p := range c.pixels {
			if !yield(p) {
				return
			}
		}
	}
}

func (c Cluster[P]) TotalCharge() float64 {
	var sum float64
	for _, p := range c.pixels {
		sum += p.Charge()
	}
	return sum
}

// CenterOfGravity is the charge-weighted mean pixel position. Both values
// are NaN when the total charge is zero.
func (c Cluster[P]) CenterOfGravity() (x, y float64) {
	var sum, sx, sy float64
	for _, p := range c.pixels {
		px, py := p.Coords()
		q := p.Charge()
		sum += q
		sx += q * float64(px)
		sy += q * float64(py)
	}
	if sum == 0 {
		return math.NaN(), math.NaN()
	}
	return sx / sum, sy / sum
}

// Seed returns the pixel with the largest charge.
func (c Cluster[P]) Seed() (P, bool) {
	var seed P
	if len(c.pixels) == 0 {
		return seed, false
	}
	seed = c.pixels[0]
	for _, p := range c.pixels[1:] {
		if p.Charge() > seed.Charge() {
			seed = p
		}
	}
	return seed, true
}

// ClusterSize is the bounding box extent in pixels along x and y.
func (c Cluster[P]) ClusterSize() (xSize, ySize int) {
	if len(c.pixels) == 0 {
		return 0, 0
	}
	minX, minY := c.pixels[0].Coords()
	maxX, maxY := minX, minY
	for _, p := range c.pixels[1:] {
		x, y := p.Coords()
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return maxX - minX + 1, maxY - minY + 1
}

// GeomInfo describes the physical extent of a cluster.
type GeomInfo struct {
	XMin, XMax float64
	YMin, YMax float64
}

func (g GeomInfo) SizeX() float64   { return g.XMax - g.XMin }
func (g GeomInfo) SizeY() float64   { return g.YMax - g.YMin }
func (g GeomInfo) CenterX() float64 { return 0.5 * (g.XMax + g.XMin) }
func (g GeomInfo) CenterY() float64 { return 0.5 * (g.YMax + g.YMin) }

// HasGeometry reports whether every pixel carries geometry.
func (c Cluster[P]) HasGeometry() bool {
	if len(c.pixels) == 0 {
		return false
	}
	for _, p := range c.pixels {
		if _, ok := p.Geometry(); !ok {
			return false
		}
	}
	return true
}

// GeomInfo returns the bounding box including pixel half-widths. ok is false
// unless every pixel carries geometry.
func (c Cluster[P]) GeomInfo() (info GeomInfo, ok bool) {
	if !c.HasGeometry() {
		return GeomInfo{}, false
	}
	info = GeomInfo{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
	}
	for _, p := range c.pixels {
		g, _ := p.Geometry()
		info.XMin = math.Min(info.XMin, g.PosX-g.BoundX)
		info.XMax = math.Max(info.XMax, g.PosX+g.BoundX)
		info.YMin = math.Min(info.YMin, g.PosY-g.BoundY)
		info.YMax = math.Max(info.YMax, g.PosY+g.BoundY)
	}
	return info, true
}

// Shape returns the pixel pattern of the cluster.
func (c Cluster[P]) Shape() shape.Cluster {
	offsets := make([]shape.Offset, len(c.pixels))
	for i, p := range c.pixels {
		x, y := p.Coords()
		offsets[i] = shape.Offset{X: x, Y: y}
	}
	return shape.New(offsets...)
}

// Clusterize groups the fired pixels of one sensor into 8-connected clusters.
func Clusterize(sensorID int, pixels []Pixel) []Cluster[Pixel] {
	xs := make([]int, len(pixels))
	ys := make([]int, len(pixels))
	for i, p := range pixels {
		xs[i], ys[i] = p.Coords()
	}
	groups := shape.Groups(xs, ys)
	clusters := make([]Cluster[Pixel], len(groups))
	for i, g := range groups {
		clusters[i].SensorID = sensorID
		for _, k := range g {
			clusters[i].Add(pixels[k])
		}
	}
	return clusters
}
