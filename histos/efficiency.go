package histos

import (
	"math"

	"go-hep.org/x/hep/hbook"
)

// Efficiency is a position-binned pass/total map. Each fill counts once in
// the total and with its weight in the pass histogram.
type Efficiency struct {
	pass, total    *hbook.H2D
	nBinsX, nBinsY int
	n, k           float64
}

func NewEfficiency(nBinsX int, xLow, xHigh float64, nBinsY int, yLow, yHigh float64) *Efficiency {
	return &Efficiency{
		pass:   hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		total:  hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		nBinsX: nBinsX,
		nBinsY: nBinsY,
	}
}

func (e *Efficiency) Fill(x, y, weight float64) {
	e.total.Fill(x, y, 1)
	e.pass.Fill(x, y, weight)
	e.n++
	e.k += weight
}

// Value is the overall efficiency with its binomial error.
func (e *Efficiency) Value() (eff, err float64) {
	if e.n == 0 {
		return math.NaN(), math.NaN()
	}
	eff = e.k / e.n
	return eff, math.Sqrt(eff * (1 - eff) / e.n)
}

// Entries is the number of fills.
func (e *Efficiency) Entries() float64 { return e.n }

func (e *Efficiency) Dims() (int, int) { return e.nBinsX, e.nBinsY }

// Z is the bin efficiency, NaN for empty bins.
func (e *Efficiency) Z(i, j int) float64 {
	n := e.total.GridXYZ().Z(i, j)
	if n == 0 {
		return math.NaN()
	}
	return e.pass.GridXYZ().Z(i, j) / n
}

func (e *Efficiency) X(i int) float64 { return e.total.GridXYZ().X(i) }
func (e *Efficiency) Y(j int) float64 { return e.total.GridXYZ().Y(j) }

// Pass and Total expose the underlying histograms.
func (e *Efficiency) Pass() *hbook.H2D  { return e.pass }
func (e *Efficiency) Total() *hbook.H2D { return e.total }
