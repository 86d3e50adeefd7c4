package histos

import (
	"math"

	"go-hep.org/x/hep/hbook"
)

// ResGrid accumulates a value per (x, y) bin and exposes its spread or mean
// as a plotter.GridXYZ.
type ResGrid struct {
	hCount, hV, hV2 *hbook.H2D
	nBinsX, nBinsY  int

	// Mean selects the bin mean instead of the RMS for Z.
	Mean bool
	// MinEntries is the count below which Z reports Empty.
	MinEntries float64
	Empty      float64
}

func NewResGrid(nBinsX int, xLow, xHigh float64, nBinsY int, yLow, yHigh float64) *ResGrid {
	return &ResGrid{
		hCount:     hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		hV:         hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		hV2:        hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		nBinsX:     nBinsX,
		nBinsY:     nBinsY,
		MinEntries: 3,
	}
}

func (g *ResGrid) Fill(x, y, z float64) {
	g.hCount.Fill(x, y, 1)
	g.hV.Fill(x, y, z)
	g.hV2.Fill(x, y, z*z)
}

func (g *ResGrid) Dims() (int, int) {
	return g.nBinsX, g.nBinsY
}

// Count is the number of fills in bin (i, j).
func (g *ResGrid) Count(i, j int) float64 {
	return g.hCount.GridXYZ().Z(i, j)
}

func (g *ResGrid) Z(i, j int) float64 {
	n := g.Count(i, j)
	if n < g.MinEntries || n == 0 {
		return g.Empty
	}
	mean := g.hV.GridXYZ().Z(i, j) / n
	if g.Mean {
		return mean
	}
	mean2 := g.hV2.GridXYZ().Z(i, j) / n
	return math.Sqrt(math.Max(mean2-mean*mean, 0))
}

func (g *ResGrid) X(i int) float64 {
	return g.hCount.GridXYZ().X(i)
}

func (g *ResGrid) Y(j int) float64 {
	return g.hCount.GridXYZ().Y(j)
}
