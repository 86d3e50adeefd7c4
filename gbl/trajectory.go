// Package gbl fits General Broken Lines trajectories for straight tracks.
//
// A trajectory is an ordered list of points along the path length s. Each
// point may carry a two-dimensional measurement and a scatterer. The fit
// parameters are the transverse offsets (x and y) at the first and last
// points and at every interior scatterer; offsets at the other points are
// interpolated linearly. Measurements constrain the offsets, scatterers
// constrain the kink between the adjacent segments. The two transverse
// directions are uncorrelated and solved independently.
package gbl

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidTrajectory is returned for trajectories that cannot be fitted.
	ErrInvalidTrajectory = errors.New("gbl: invalid trajectory")
	// ErrSingular is returned when the normal equations are not positive definite.
	ErrSingular = errors.New("gbl: singular normal equations")
)

// Measurement is a residual against the reference trajectory and its
// precision (inverse variance) on each axis.
type Measurement struct {
	Residual  [2]float64
	Precision [2]float64
}

// Scatterer is the expected kink (usually zero) and its precision on each axis.
type Scatterer struct {
	Kink      [2]float64
	Precision [2]float64
}

// Point is one position along the trajectory.
type Point struct {
	S    float64
	Meas *Measurement
	Scat *Scatterer
}

func NewPoint(s float64) Point {
	return Point{S: s}
}

func (p *Point) AddMeasurement(residual, precision [2]float64) {
	p.Meas = &Measurement{Residual: residual, Precision: precision}
}

func (p *Point) AddScatterer(kink, precision [2]float64) {
	p.Scat = &Scatterer{Kink: kink, Precision: precision}
}

func (p Point) HasMeasurement() bool { return p.Meas != nil }
func (p Point) HasScatterer() bool   { return p.Scat != nil }

// Trajectory is a validated sequence of points.
type Trajectory struct {
	points []Point
}

// NewTrajectory checks that s increases strictly and that at least two
// points are measured.
func NewTrajectory(points []Point) (*Trajectory, error) {
	if len(points) < 2 {
		return nil, errors.Wrapf(ErrInvalidTrajectory, "%d points", len(points))
	}
	nmeas := 0
	for i, p := range points {
		if i > 0 && p.S <= points[i-1].S {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "point %d: s=%g does not follow s=%g", i, p.S, points[i-1].S)
		}
		if p.Meas != nil {
			for k := 0; k < 2; k++ {
				if p.Meas.Precision[k] < 0 {
					return nil, errors.Wrapf(ErrInvalidTrajectory, "point %d: negative measurement precision", i)
				}
			}
			nmeas++
		}
		if p.Scat != nil && (p.Scat.Precision[0] < 0 || p.Scat.Precision[1] < 0) {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "point %d: negative scattering precision", i)
		}
	}
	if nmeas < 2 {
		return nil, errors.Wrapf(ErrInvalidTrajectory, "%d measurements", nmeas)
	}
	return &Trajectory{points: append([]Point(nil), points...)}, nil
}

func (t *Trajectory) NumPoints() int { return len(t.points) }

func (t *Trajectory) Point(i int) Point { return t.points[i] }

// NumMeasurements counts the measured points.
func (t *Trajectory) NumMeasurements() int {
	n := 0
	for _, p := range t.points {
		if p.Meas != nil {
			n++
		}
	}
	return n
}

func (t *Trajectory) String() string {
	return fmt.Sprintf("gbl trajectory: %d points, %d measurements", len(t.points), t.NumMeasurements())
}
