package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/analysis"
	"github.com/decibelcooper/eutel/histos"
)

var (
	configFile = flag.String("config", "", "JSON steering file")
	title      = flag.String("title", "", "plot title")
	prefix     = flag.String("prefix", "out", "output file prefix")
	maps       = flag.Bool("maps", false, "also draw the efficiency map of every plane for the first input")
	settings   eutel.SettingFlags
)

func init() {
	flag.Var(&settings, "set", "steering override as key=value, may be repeated")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <lcio-input-files>...

Draws the efficiency of every telescope plane, one series per input file.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	logger := eutel.NewLogger()
	if err := run(logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(logger eutel.Logger) error {
	config, geo, err := eutel.Setup(*configFile, &settings)
	if err != nil {
		return err
	}
	ctx, err := analysis.NewContext(config, geo, logger)
	if err != nil {
		return err
	}

	var (
		series [][]histos.Point
		legend []string
	)
	for i, filename := range flag.Args() {
		procs, err := analysis.DefaultRegistry().New(ctx, "PlaneEfficiency")
		if err != nil {
			return err
		}
		runner := analysis.NewRunner(ctx, procs)
		src := analysis.NewLCIOSource([]string{filename}, config.HitCollection, config.ZSCollection)
		err = runner.Run(context.Background(), src)
		src.Close()
		if err != nil {
			return err
		}
		runner.End()

		var points []histos.Point
		for _, plane := range config.EffPlanes {
			eff, effErr, n := runner.Summary.Efficiency(plane)
			if n == 0 {
				continue
			}
			points = append(points, histos.Point{
				X:    float64(plane) + 0.1*float64(i),
				Y:    eff,
				ErrX: 0.5 / math.Sqrt(3),
				ErrY: effErr,
			})
		}
		series = append(series, points)
		legend = append(legend, filepath.Base(filename))

		if *maps && i == 0 {
			for _, plane := range config.EffPlanes {
				e, ok := runner.Histos.Efficiency(analysis.EffName(plane))
				if !ok || e.Entries() == 0 {
					continue
				}
				labels := histos.Labels{Title: runner.Histos.Title(analysis.EffName(plane)), X: "x (mm)", Y: "y (mm)"}
				fname := fmt.Sprintf("%s_map_plane%d.png", *prefix, plane)
				if err := histos.SaveHeatMap(fname, labels, e, 0, 1); err != nil {
					return err
				}
			}
		}
	}

	labels := histos.Labels{Title: *title, X: "plane", Y: "efficiency"}
	for _, ext := range []string{".pdf", ".png"} {
		if err := histos.SavePoints(*prefix+ext, labels, legend, series...); err != nil {
			return err
		}
	}
	return nil
}
