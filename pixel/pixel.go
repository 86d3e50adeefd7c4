// Package pixel holds zero-suppressed pixel data and the clusters built from it.
package pixel

import (
	"fmt"
)

// Type tags the encoding of sparse pixels in a raw data vector.
type Type int

const (
	TypeGeneric   Type = 1
	TypeGeometric Type = 2
	TypeUnknown   Type = 31
)

func (t Type) String() string {
	switch t {
	case TypeGeneric:
		return "generic"
	case TypeGeometric:
		return "geometric"
	default:
		return "unknown"
	}
}

// Stride is the number of float values one pixel occupies in a raw vector.
func (t Type) Stride() int {
	switch t {
	case TypeGeneric:
		return 4
	case TypeGeometric:
		return 8
	default:
		return 0
	}
}

// Geometry is the optional physical description of a pixel: its centre in
// local sensor coordinates and its half-widths, in mm.
type Geometry struct {
	PosX, PosY     float64
	BoundX, BoundY float64
}

// Pixel is one fired pixel.
type Pixel struct {
	X, Y   int16
	Signal float32
	Time   int16
	geo    *Geometry
}

func New(x, y int16, signal float32, time int16) Pixel {
	return Pixel{X: x, Y: y, Signal: signal, Time: time}
}

// WithGeometry returns a copy of p carrying g.
func (p Pixel) WithGeometry(g Geometry) Pixel {
	p.geo = &g
	return p
}

func (p Pixel) HasGeometry() bool {
	return p.geo != nil
}

func (p Pixel) Geometry() (Geometry, bool) {
	if p.geo == nil {
		return Geometry{}, false
	}
	return *p.geo, true
}

func (p Pixel) Coords() (int, int) {
	return int(p.X), int(p.Y)
}

func (p Pixel) Charge() float64 {
	return float64(p.Signal)
}

func (p Pixel) String() string {
	if p.geo != nil {
		return fmt.Sprintf("pixel(%d,%d) signal=%g time=%d pos=(%g,%g)", p.X, p.Y, p.Signal, p.Time, p.geo.PosX, p.geo.PosY)
	}
	return fmt.Sprintf("pixel(%d,%d) signal=%g time=%d", p.X, p.Y, p.Signal, p.Time)
}

// Decode unpacks a raw vector of pixel values written with the given type.
func Decode(raw []float32, typ Type) ([]Pixel, error) {
	stride := typ.Stride()
	if stride == 0 {
		return nil, fmt.Errorf("pixel: cannot decode pixel type %d", typ)
	}
	if len(raw)%stride != 0 {
		return nil, fmt.Errorf("pixel: raw vector of length %d is not a multiple of %d for %v pixels", len(raw), stride, typ)
	}
	pixels := make([]Pixel, 0, len(raw)/stride)
	for i := 0; i < len(raw); i += stride {
		p := New(int16(raw[i]), int16(raw[i+1]), raw[i+2], int16(raw[i+3]))
		if typ == TypeGeometric {
			p = p.WithGeometry(Geometry{
				PosX:   float64(raw[i+4]),
				PosY:   float64(raw[i+5]),
				BoundX: float64(raw[i+6]),
				BoundY: float64(raw[i+7]),
			})
		}
		pixels = append(pixels, p)
	}
	return pixels, nil
}

// Encode packs pixels into a raw vector. Geometric encoding requires every
// pixel to carry geometry.
func Encode(pixels []Pixel, typ Type) ([]float32, error) {
	stride := typ.Stride()
	if stride == 0 {
		return nil, fmt.Errorf("pixel: cannot encode pixel type %d", typ)
	}
	raw := make([]float32, 0, len(pixels)*stride)
	for _, p := range pixels {
		raw = append(raw, float32(p.X), float32(p.Y), p.Signal, float32(p.Time))
		if typ == TypeGeometric {
			if p.geo == nil {
				return nil, fmt.Errorf("pixel: %v has no geometry", p)
			}
			raw = append(raw, float32(p.geo.PosX), float32(p.geo.PosY), float32(p.geo.BoundX), float32(p.geo.BoundY))
		}
	}
	return raw, nil
}
