package histos

import (
	"image/color"
	"math"
	"os"

	"github.com/pkg/errors"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/decibelcooper/eutel"
)

// Labels holds the text decorations of a plot. XScale multiplies the x tick
// labels, so values in mm can be labelled in µm.
type Labels struct {
	Title, X, Y string
	XScale      float64
	LogY        bool
}

func (l Labels) apply(p *plot.Plot) {
	p.Title.Text = l.Title
	p.X.Label.Text = l.X
	p.Y.Label.Text = l.Y
	p.X.Tick.Marker = eutel.PreciseTicks{NSuggestedTicks: 5, Scale: l.XScale}
	p.Y.Tick.Marker = eutel.PreciseTicks{NSuggestedTicks: 5}
	if l.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
}

// SaveH1D overlays the histograms, one colour and dash pattern each. The
// format follows the file extension.
func SaveH1D(fname string, labels Labels, legend []string, hists ...*hbook.H1D) error {
	p := hplot.New()
	labels.apply(p.Plot)
	for i, h := range hists {
		if h.Entries() == 0 {
			continue
		}
		hp := hplot.NewH1D(h, hplot.WithLogY(labels.LogY))
		hp.LineStyle.Color = plotutil.Color(i)
		hp.LineStyle.Dashes = plotutil.Dashes(i)
		if len(hists) == 1 {
			hp.Infos.Style = hplot.HInfoSummary
		}
		p.Add(hp)
		if i < len(legend) {
			p.Legend.Add(legend[i], hp)
		}
	}
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, fname), "saving %q", fname)
}

// Point is a value with symmetric errors for SavePoints.
type Point struct {
	X, Y       float64
	ErrX, ErrY float64
}

// SavePoints draws each series as error bars in its own colour, such as the
// plane efficiencies of several runs.
func SavePoints(fname string, labels Labels, legend []string, series ...[]Point) error {
	p := plot.New()
	labels.apply(p)

	for i, points := range series {
		if len(points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(points))
		xErrors := make(plotter.XErrors, len(points))
		yErrors := make(plotter.YErrors, len(points))
		for k, pt := range points {
			xys[k].X, xys[k].Y = pt.X, pt.Y
			xErrors[k].Low, xErrors[k].High = pt.ErrX, pt.ErrX
			yErrors[k].Low, yErrors[k].High = pt.ErrY, pt.ErrY
		}
		errPoints := plotutil.ErrorPoints{XYs: xys, XErrors: xErrors, YErrors: yErrors}
		xerr, err := plotter.NewXErrorBars(errPoints)
		if err != nil {
			return err
		}
		yerr, err := plotter.NewYErrorBars(errPoints)
		if err != nil {
			return err
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		var pointColor color.Color = color.RGBA{A: 255}
		if i > 0 {
			pointColor = plotutil.Color(i)
		}
		xerr.LineStyle.Color = pointColor
		yerr.LineStyle.Color = pointColor
		scatter.GlyphStyle.Color = pointColor
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(xerr, yerr, scatter)
		if i < len(legend) {
			p.Legend.Add(legend[i], scatter)
		}
	}

	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, fname), "saving %q", fname)
}

// SaveHeatMap renders grid with a colour bar to a PNG file. Bins outside
// [zmin, zmax] or NaN are left blank.
func SaveHeatMap(fname string, labels Labels, grid plotter.GridXYZ, zmin, zmax float64) error {
	if !(zmax > zmin) {
		return errors.Errorf("invalid colour range [%g, %g]", zmin, zmax)
	}
	p := plot.New()
	labels.apply(p)

	img := vgimg.New(670, 400)
	dc := draw.New(img)
	dc0 := draw.Crop(dc, 0, -70, 0, 0)
	dc1 := draw.Crop(dc, 620, 0, 0, 0)

	colorMap := moreland.ExtendedBlackBody()
	colorMap.SetMin(zmin)
	colorMap.SetMax(zmax)
	pal := colorMap.Palette(1000)
	heatMap := plotter.NewHeatMap(clipped{grid, zmin, zmax}, pal)
	heatMap.Min = zmin
	heatMap.Max = zmax
	heatMap.NaN = color.Transparent
	p.Add(heatMap)

	p.Draw(dc0)

	p = plot.New()

	colorBar := &plotter.ColorBar{ColorMap: colorMap}
	colorBar.Vertical = true
	p.Add(colorBar)
	p.HideX()
	p.Y.Padding = 0

	p.Draw(dc1)

	w, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "creating heat map file")
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err = png.WriteTo(w); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing %q", fname)
	}
	return w.Close()
}

type clipped struct {
	plotter.GridXYZ
	min, max float64
}

func (c clipped) Z(i, j int) float64 {
	z := c.GridXYZ.Z(i, j)
	if z < c.min || z > c.max {
		return math.NaN()
	}
	return z
}
