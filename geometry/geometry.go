// Package geometry describes the telescope planes and maps sensors, z
// positions and pixel indices onto them.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// X0Silicon is the radiation length of silicon in mm.
const X0Silicon = 93.66

// Plane is one sensor plane. Lengths are in mm.
type Plane struct {
	SensorID  int        `json:"sensor_id"`
	Z         float64    `json:"z"`
	PosX      float64    `json:"pos_x"`
	PosY      float64    `json:"pos_y"`
	PitchX    float64    `json:"pitch_x"`
	PitchY    float64    `json:"pitch_y"`
	NPixelX   int        `json:"npixel_x"`
	NPixelY   int        `json:"npixel_y"`
	Thickness float64    `json:"thickness"`
	RadLength float64    `json:"rad_length"`
	Rotation  [4]float64 `json:"rotation"`
}

// SizeX is the sensitive width along local x.
func (p Plane) SizeX() float64 { return p.PitchX * float64(p.NPixelX) }

// SizeY is the sensitive width along local y.
func (p Plane) SizeY() float64 { return p.PitchY * float64(p.NPixelY) }

// PixelCenter returns the local position of a (fractional) pixel index,
// with the origin at the sensor centre.
func (p Plane) PixelCenter(col, row float64) (u, v float64) {
	u = (col+0.5)*p.PitchX - 0.5*p.SizeX()
	v = (row+0.5)*p.PitchY - 0.5*p.SizeY()
	return u, v
}

// LocalToGlobal rotates and shifts a local position into the telescope frame.
func (p Plane) LocalToGlobal(u, v float64) (x, y, z float64) {
	r := p.Rotation
	x = p.PosX + r[0]*u + r[1]*v
	y = p.PosY + r[2]*u + r[3]*v
	return x, y, p.Z
}

// GlobalToLocal is the inverse of LocalToGlobal in the plane.
func (p Plane) GlobalToLocal(x, y float64) (u, v float64) {
	r := p.Rotation
	det := r[0]*r[3] - r[1]*r[2]
	dx, dy := x-p.PosX, y-p.PosY
	u = (r[3]*dx - r[1]*dy) / det
	v = (-r[2]*dx + r[0]*dy) / det
	return u, v
}

// PixelIndex is the inverse of PixelCenter. ok is false outside the sensor.
func (p Plane) PixelIndex(u, v float64) (col, row float64, ok bool) {
	col = (u+0.5*p.SizeX())/p.PitchX - 0.5
	row = (v+0.5*p.SizeY())/p.PitchY - 0.5
	ok = col >= -0.5 && col < float64(p.NPixelX)-0.5 && row >= -0.5 && row < float64(p.NPixelY)-0.5
	return col, row, ok
}

// Provider gives plane geometry to the reconstruction.
type Provider interface {
	NPlanes() int
	Plane(i int) Plane
	PlaneOf(sensorID int) (int, bool)
	PlaneAt(z, tolerance float64) (int, bool)
}

// ErrPlane reports an inconsistent plane description.
type ErrPlane struct {
	Index  int
	Reason string
}

func (e *ErrPlane) Error() string {
	return fmt.Sprintf("geometry: plane %d: %s", e.Index, e.Reason)
}

// Telescope is a Provider with the planes ordered by z.
type Telescope struct {
	Planes []Plane `json:"planes"`
}

// New validates the planes, fills defaults and sorts them by z.
func New(planes []Plane) (*Telescope, error) {
	t := &Telescope{Planes: append([]Plane(nil), planes...)}
	for i := range t.Planes {
		p := &t.Planes[i]
		if p.Rotation == [4]float64{} {
			p.Rotation = [4]float64{1, 0, 0, 1}
		}
		if p.RadLength == 0 {
			p.RadLength = X0Silicon
		}
	}
	sort.SliceStable(t.Planes, func(i, j int) bool { return t.Planes[i].Z < t.Planes[j].Z })
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads a JSON geometry description.
func Load(filename string) (*Telescope, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "reading geometry file")
	}
	var desc Telescope
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, errors.Wrapf(err, "decoding geometry file %q", filename)
	}
	return New(desc.Planes)
}

// Validate checks the description for errors that would make the
// reconstruction meaningless.
func (t *Telescope) Validate() error {
	if len(t.Planes) < 3 {
		return fmt.Errorf("geometry: need at least 3 planes, have %d", len(t.Planes))
	}
	ids := make(map[int]int)
	for i, p := range t.Planes {
		if j, ok := ids[p.SensorID]; ok {
			return &ErrPlane{Index: i, Reason: fmt.Sprintf("sensor id %d already used by plane %d", p.SensorID, j)}
		}
		ids[p.SensorID] = i
		if i > 0 && p.Z == t.Planes[i-1].Z {
			return &ErrPlane{Index: i, Reason: fmt.Sprintf("same z as plane %d", i-1)}
		}
		if p.PitchX <= 0 || p.PitchY <= 0 {
			return &ErrPlane{Index: i, Reason: "pitch must be positive"}
		}
		if p.NPixelX <= 0 || p.NPixelY <= 0 {
			return &ErrPlane{Index: i, Reason: "pixel counts must be positive"}
		}
		if p.Thickness < 0 || p.RadLength <= 0 {
			return &ErrPlane{Index: i, Reason: "invalid material description"}
		}
		rot := mat.NewDense(2, 2, p.Rotation[:])
		if math.Abs(mat.Det(rot)) < 1e-9 {
			return &ErrPlane{Index: i, Reason: "singular rotation matrix"}
		}
	}
	return nil
}

func (t *Telescope) NPlanes() int { return len(t.Planes) }

func (t *Telescope) Plane(i int) Plane { return t.Planes[i] }

// PlaneOf maps a sensor id onto a plane index.
func (t *Telescope) PlaneOf(sensorID int) (int, bool) {
	for i, p := range t.Planes {
		if p.SensorID == sensorID {
			return i, true
		}
	}
	return -1, false
}

// PlaneAt returns the plane closest to z if it lies within tolerance.
func (t *Telescope) PlaneAt(z, tolerance float64) (int, bool) {
	best, dist := -1, math.Inf(1)
	for i, p := range t.Planes {
		if d := math.Abs(p.Z - z); d < dist {
			best, dist = i, d
		}
	}
	if dist > tolerance {
		return -1, false
	}
	return best, true
}

// Spacing is the distance between the first two planes, used to scale cuts.
func (t *Telescope) Spacing() float64 {
	return t.Planes[1].Z - t.Planes[0].Z
}

// Positions lists the plane z positions.
func (t *Telescope) Positions() []float64 {
	zs := make([]float64, len(t.Planes))
	for i, p := range t.Planes {
		zs[i] = p.Z
	}
	return zs
}

// Default returns six Mimosa26 planes spaced by spacing mm, sensor ids 0-5.
func Default(spacing float64) *Telescope {
	planes := make([]Plane, 6)
	for i := range planes {
		planes[i] = Plane{
			SensorID:  i,
			Z:         float64(i) * spacing,
			PitchX:    0.0184,
			PitchY:    0.0184,
			NPixelX:   1152,
			NPixelY:   576,
			Thickness: 0.05,
		}
	}
	t, err := New(planes)
	if err != nil {
		panic(err)
	}
	return t
}
