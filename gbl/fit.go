package gbl

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type term struct {
	slot int
	coef float64
}

func eval(ts []term, u *mat.VecDense) float64 {
	var v float64
	for _, t := range ts {
		v += t.coef * u.AtVec(t.slot)
	}
	return v
}

func variance(ts []term, cov *mat.SymDense) float64 {
	var v float64
	for _, ti := range ts {
		for _, tj := range ts {
			v += ti.coef * tj.coef * cov.At(ti.slot, tj.slot)
		}
	}
	return v
}

// model maps every point onto the offset parameters.
type model struct {
	nparams int
	offsets [][]term
	kinks   [][]term
}

func newModel(t *Trajectory) model {
	n := len(t.points)
	var params []int
	for i, p := range t.points {
		if i == 0 || i == n-1 || p.Scat != nil {
			params = append(params, i)
		}
	}
	m := model{
		nparams: len(params),
		offsets: make([][]term, n),
		kinks:   make([][]term, n),
	}

	k := 0
	for i := range t.points {
		if params[k] == i {
			m.offsets[i] = []term{{slot: k, coef: 1}}
			if k > 0 && k < len(params)-1 {
				prev, next := t.points[params[k-1]].S, t.points[params[k+1]].S
				s := t.points[i].S
				h1, h2 := s-prev, next-s
				m.kinks[i] = []term{
					{slot: k - 1, coef: 1 / h1},
					{slot: k, coef: -(1/h1 + 1/h2)},
					{slot: k + 1, coef: 1 / h2},
				}
			}
			if k < len(params)-1 {
				k++
			}
			continue
		}
		// i lies strictly between params[k-1] and params[k].
		left, right := t.points[params[k-1]].S, t.points[params[k]].S
		alpha := (right - t.points[i].S) / (right - left)
		m.offsets[i] = []term{{slot: k - 1, coef: alpha}, {slot: k, coef: 1 - alpha}}
	}
	return m
}

// Result holds the fitted offsets and their covariance on both axes.
type Result struct {
	Chi2       float64
	Ndf        int
	LostWeight float64

	traj   *Trajectory
	model  model
	u      [2]*mat.VecDense
	cov    [2]*mat.SymDense
	measDW [][2]float64
	scatDW [][2]float64
}

// Fit solves the trajectory. Each character of downWeighting requests one
// further iteration with outlier down-weighting: 'T' Tukey, 'H' Huber,
// 'C' Cauchy.
func Fit(t *Trajectory, downWeighting string) (*Result, error) {
	if t == nil || len(t.points) < 2 {
		return nil, ErrInvalidTrajectory
	}
	n := len(t.points)
	r := &Result{
		traj:   t,
		model:  newModel(t),
		measDW: make([][2]float64, n),
		scatDW: make([][2]float64, n),
	}
	for i := range r.measDW {
		r.measDW[i] = [2]float64{1, 1}
		r.scatDW[i] = [2]float64{1, 1}
	}

	if err := r.solve(); err != nil {
		return nil, err
	}
	for _, opt := range downWeighting {
		weight, err := downWeighter(opt)
		if err != nil {
			return nil, err
		}
		r.reweight(weight)
		if err := r.solve(); err != nil {
			return nil, err
		}
	}
	r.summarize()
	return r, nil
}

func downWeighter(opt rune) (func(z float64) float64, error) {
	switch opt {
	case 'T', 't':
		const c = 4.6851
		return func(z float64) float64 {
			if z >= c {
				return 0
			}
			q := 1 - (z/c)*(z/c)
			return q * q
		}, nil
	case 'H', 'h':
		const c = 1.345
		return func(z float64) float64 {
			if z < c {
				return 1
			}
			return c / z
		}, nil
	case 'C', 'c':
		const c = 2.3849
		return func(z float64) float64 {
			return 1 / (1 + (z/c)*(z/c))
		}, nil
	}
	return nil, fmt.Errorf("gbl: unknown down-weighting option %q", opt)
}

func (r *Result) solve() error {
	np := r.model.nparams
	for k := 0; k < 2; k++ {
		a := mat.NewSymDense(np, nil)
		b := mat.NewVecDense(np, nil)
		add := func(ts []term, w, target float64) {
			for _, ti := range ts {
				b.SetVec(ti.slot, b.AtVec(ti.slot)+w*target*ti.coef)
				for _, tj := range ts {
					if tj.slot >= ti.slot {
						a.SetSym(ti.slot, tj.slot, a.At(ti.slot, tj.slot)+w*ti.coef*tj.coef)
					}
				}
			}
		}
		for i, p := range r.traj.points {
			if p.Meas != nil {
				add(r.model.offsets[i], p.Meas.Precision[k]*r.measDW[i][k], p.Meas.Residual[k])
			}
			if r.model.kinks[i] != nil {
				add(r.model.kinks[i], p.Scat.Precision[k]*r.scatDW[i][k], p.Scat.Kink[k])
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			return ErrSingular
		}
		u := mat.NewVecDense(np, nil)
		if err := chol.SolveVecTo(u, b); err != nil {
			return errors.Wrap(ErrSingular, err.Error())
		}
		cov := mat.NewSymDense(np, nil)
		if err := chol.InverseTo(cov); err != nil {
			return errors.Wrap(ErrSingular, err.Error())
		}
		r.u[k], r.cov[k] = u, cov
	}
	return nil
}

func (r *Result) reweight(weight func(z float64) float64) {
	for i, p := range r.traj.points {
		for k := 0; k < 2; k++ {
			if p.Meas != nil {
				res := p.Meas.Residual[k] - eval(r.model.offsets[i], r.u[k])
				r.measDW[i][k] = weight(math.Abs(res) * math.Sqrt(p.Meas.Precision[k]))
			}
			if r.model.kinks[i] != nil {
				kink := eval(r.model.kinks[i], r.u[k]) - p.Scat.Kink[k]
				r.scatDW[i][k] = weight(math.Abs(kink) * math.Sqrt(p.Scat.Precision[k]))
			}
		}
	}
}

func (r *Result) summarize() {
	r.Chi2, r.LostWeight = 0, 0
	ndim := 0
	for i, p := range r.traj.points {
		for k := 0; k < 2; k++ {
			if p.Meas != nil {
				res := p.Meas.Residual[k] - eval(r.model.offsets[i], r.u[k])
				w := p.Meas.Precision[k] * r.measDW[i][k]
				r.Chi2 += w * res * res
				r.LostWeight += p.Meas.Precision[k] * (1 - r.measDW[i][k])
				ndim++
			}
			if r.model.kinks[i] != nil {
				kink := eval(r.model.kinks[i], r.u[k]) - p.Scat.Kink[k]
				w := p.Scat.Precision[k] * r.scatDW[i][k]
				r.Chi2 += w * kink * kink
				r.LostWeight += p.Scat.Precision[k] * (1 - r.scatDW[i][k])
				ndim++
			}
		}
	}
	r.Ndf = ndim - 2*r.model.nparams
}

// PointResult is the fitted correction at a point.
type PointResult struct {
	Offset [2]float64
	Slope  [2]float64
	Cov    [2]float64
}

// MeasResult compares a measurement with the fit. ResErr is the error of
// the (biased) residual, DownWeight the factor applied by the last
// down-weighting iteration.
type MeasResult struct {
	Residual   [2]float64
	MeasErr    [2]float64
	ResErr     [2]float64
	DownWeight [2]float64
}

// ScatResult compares a scatterer with the fitted kink.
type ScatResult struct {
	Kink       [2]float64
	KinkErr    [2]float64
	ResErr     [2]float64
	DownWeight [2]float64
}

func (r *Result) NumPoints() int { return len(r.traj.points) }

// Results returns the offset correction, the local slope and the offset
// variance at point i.
func (r *Result) Results(i int) PointResult {
	var pr PointResult
	j, l := i, i+1
	if l >= len(r.traj.points) {
		j, l = i-1, i
	}
	ds := r.traj.points[l].S - r.traj.points[j].S
	for k := 0; k < 2; k++ {
		pr.Offset[k] = eval(r.model.offsets[i], r.u[k])
		pr.Cov[k] = variance(r.model.offsets[i], r.cov[k])
		pr.Slope[k] = (eval(r.model.offsets[l], r.u[k]) - eval(r.model.offsets[j], r.u[k])) / ds
	}
	return pr
}

// MeasResults returns the measurement comparison at point i, if measured.
func (r *Result) MeasResults(i int) (MeasResult, bool) {
	p := r.traj.points[i]
	if p.Meas == nil {
		return MeasResult{}, false
	}
	var mr MeasResult
	for k := 0; k < 2; k++ {
		mr.Residual[k] = p.Meas.Residual[k] - eval(r.model.offsets[i], r.u[k])
		mr.MeasErr[k] = 1 / math.Sqrt(p.Meas.Precision[k])
		v := mr.MeasErr[k]*mr.MeasErr[k] - variance(r.model.offsets[i], r.cov[k])
		mr.ResErr[k] = math.Sqrt(math.Max(v, 0))
		mr.DownWeight[k] = r.measDW[i][k]
	}
	return mr, true
}

// ScatResults returns the kink comparison at point i. End points and points
// without a scatterer have none.
func (r *Result) ScatResults(i int) (ScatResult, bool) {
	p := r.traj.points[i]
	if r.model.kinks[i] == nil {
		return ScatResult{}, false
	}
	var sr ScatResult
	for k := 0; k < 2; k++ {
		sr.Kink[k] = eval(r.model.kinks[i], r.u[k]) - p.Scat.Kink[k]
		sr.KinkErr[k] = 1 / math.Sqrt(p.Scat.Precision[k])
		v := sr.KinkErr[k]*sr.KinkErr[k] - variance(r.model.kinks[i], r.cov[k])
		sr.ResErr[k] = math.Sqrt(math.Max(v, 0))
		sr.DownWeight[k] = r.scatDW[i][k]
	}
	return sr, true
}
