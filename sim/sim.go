// Package sim generates test beam events: straight tracks through the
// telescope with multiple scattering, smeared hits, charge sharing between
// neighbouring pixels, inefficiency and noise.
package sim

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/decibelcooper/eutel/analysis"
	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/lcioio"
	"github.com/decibelcooper/eutel/pixel"
	"github.com/decibelcooper/eutel/trackfit"
)

// Generator draws events. Lengths are in mm, angles in rad.
type Generator struct {
	Geo      *geometry.Telescope
	Material trackfit.Material

	Tracks       int
	SpotX, SpotY float64
	Divergence   float64
	Resolution   float64
	Inefficiency float64
	// NoiseHits is the mean number of noise clusters per plane and event.
	NoiseHits float64
	// Charge is the total signal of a cluster.
	Charge float64
	// Src seeds every draw. A nil Src uses the global source.
	Src rand.Source
}

// NewGenerator returns a generator of one track per event with a 2 mm by
// 1 mm beam spot and no noise, drawing from a source seeded with seed.
func NewGenerator(geo *geometry.Telescope, mat trackfit.Material, resolution float64, seed uint64) Generator {
	return Generator{
		Geo:        geo,
		Material:   mat,
		Tracks:     1,
		SpotX:      2,
		SpotY:      1,
		Divergence: 1e-3,
		Resolution: resolution,
		Charge:     10,
		Src:        rand.NewSource(seed),
	}
}

func (g Generator) gauss(sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: g.Src}.Rand()
}

// Event draws one event with both hits and zero-suppressed data.
func (g Generator) Event(run, number int) analysis.Event {
	n := g.Geo.NPlanes()
	sensors := make([]lcioio.SensorData, n)
	for i := range sensors {
		sensors[i] = lcioio.SensorData{SensorID: g.Geo.Plane(i).SensorID, Type: pixel.TypeGeneric}
	}
	evt := analysis.Event{Run: run, Number: number, Hits: []lcioio.Hit{}}

	uniform := distuv.Uniform{Min: 0, Max: 1, Src: g.Src}
	for t := 0; t < g.Tracks; t++ {
		z0 := g.Geo.Plane(0).Z
		x := g.Geo.Plane(0).PosX + g.gauss(g.SpotX)
		y := g.Geo.Plane(0).PosY + g.gauss(g.SpotY)
		sx, sy := g.gauss(g.Divergence), g.gauss(g.Divergence)
		z := z0
		for i := 0; i < n; i++ {
			plane := g.Geo.Plane(i)
			if i > 0 {
				// air scattering at the middle of the gap
				half := 0.5 * (plane.Z - z)
				x, y = x+sx*half, y+sy*half
				th := g.Material.Theta0(g.Material.AirEps(i - 1))
				sx, sy = sx+g.gauss(th), sy+g.gauss(th)
				x, y = x+sx*half, y+sy*half
				z = plane.Z
			}

			if uniform.Rand() >= g.Inefficiency {
				mx, my := x+g.gauss(g.Resolution), y+g.gauss(g.Resolution)
				if pixels, ok := g.deposit(plane, mx, my); ok {
					sensors[i].Pixels = append(sensors[i].Pixels, pixels...)
					evt.Hits = append(evt.Hits, lcioio.Hit{
						SensorID:    plane.SensorID,
						Pos:         [3]float64{mx, my, plane.Z},
						Cov:         [6]float64{g.Resolution * g.Resolution, 0, g.Resolution * g.Resolution},
						ClusterSize: len(pixels),
					})
				}
			}

			th := g.Material.Theta0(g.Material.PlaneEps[i])
			sx, sy = sx+g.gauss(th), sy+g.gauss(th)
		}
	}

	if g.NoiseHits > 0 {
		poisson := distuv.Poisson{Lambda: g.NoiseHits, Src: g.Src}
		for i := 0; i < n; i++ {
			plane := g.Geo.Plane(i)
			for k := int(poisson.Rand()); k > 0; k-- {
				col := int16(uniform.Rand() * float64(plane.NPixelX))
				row := int16(uniform.Rand() * float64(plane.NPixelY))
				sensors[i].Pixels = append(sensors[i].Pixels, pixel.New(col, row, float32(g.Charge), 0))
				u, v := plane.PixelCenter(float64(col), float64(row))
				gx, gy, gz := plane.LocalToGlobal(u, v)
				evt.Hits = append(evt.Hits, lcioio.Hit{SensorID: plane.SensorID, Pos: [3]float64{gx, gy, gz}, ClusterSize: 1})
			}
		}
	}

	evt.Sensors = sensors
	return evt
}

// deposit spreads the cluster charge over the pixel under (x, y) and, when
// the position is within a quarter pitch of an edge, its neighbour.
func (g Generator) deposit(plane geometry.Plane, x, y float64) ([]pixel.Pixel, bool) {
	u, v := plane.GlobalToLocal(x, y)
	col, row, ok := plane.PixelIndex(u, v)
	if !ok {
		return nil, false
	}
	c0, r0 := math.Round(col), math.Round(row)
	fx, fy := col-c0, row-r0

	type share struct {
		dc, dr int
		w      float64
	}
	shares := []share{{0, 0, 1}}
	split := func(f float64, along func(s share, sign int, w float64) share) {
		if math.Abs(f) <= 0.25 {
			return
		}
		sign := 1
		if f < 0 {
			sign = -1
		}
		var next []share
		for _, s := range shares {
			next = append(next, along(s, 0, s.w*(1-math.Abs(f))), along(s, sign, s.w*math.Abs(f)))
		}
		shares = next
	}
	split(fx, func(s share, sign int, w float64) share { return share{s.dc + sign, s.dr, w} })
	split(fy, func(s share, sign int, w float64) share { return share{s.dc, s.dr + sign, w} })

	pixels := make([]pixel.Pixel, 0, len(shares))
	for _, s := range shares {
		c, r := int(c0)+s.dc, int(r0)+s.dr
		if c < 0 || c >= plane.NPixelX || r < 0 || r >= plane.NPixelY {
			continue
		}
		pixels = append(pixels, pixel.New(int16(c), int16(r), float32(g.Charge*s.w), 0))
	}
	return pixels, len(pixels) > 0
}
