package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-hep.org/x/hep/hbook"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/analysis"
	"github.com/decibelcooper/eutel/histos"
)

var (
	configFile = flag.String("config", "", "JSON steering file")
	prefix     = flag.String("prefix", "out", "output file prefix")
	settings   eutel.SettingFlags
)

func init() {
	flag.Var(&settings, "set", "steering override as key=value, may be repeated")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <lcio-input-file>

Draws cluster size, charge and shape distributions of every plane from
zero-suppressed pixel data and logs the mirror asymmetry of the shapes.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 1 {
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
	procs, err := analysis.DefaultRegistry().New(ctx, "ClusterAnalysis")
	if err != nil {
		return err
	}
	runner := analysis.NewRunner(ctx, procs)

	src := analysis.NewLCIOSource(flag.Args(), config.HitCollection, config.ZSCollection)
	defer src.Close()
	if err := runner.Run(context.Background(), src); err != nil {
		return err
	}
	runner.End()

	reg := runner.Histos
	plots := []struct {
		format string
		labels histos.Labels
	}{
		{"cluster_size_plane%d", histos.Labels{X: "cluster size (pixels)", LogY: true}},
		{"cluster_charge_plane%d", histos.Labels{X: "cluster charge"}},
		{"cluster_shape_plane%d", histos.Labels{X: "shape index", LogY: true}},
	}
	for _, pl := range plots {
		var (
			hists  []*hbook.H1D
			legend []string
		)
		for i := 0; i < geo.NPlanes(); i++ {
			h, ok := reg.H1D(fmt.Sprintf(pl.format, i))
			if !ok {
				continue
			}
			hists = append(hists, h)
			legend = append(legend, fmt.Sprintf("plane %d", i))
		}
		fname := fmt.Sprintf("%s_"+pl.format[:len(pl.format)-len("_plane%d")]+".png", *prefix)
		if err := histos.SaveH1D(fname, pl.labels, legend, hists...); err != nil {
			return err
		}
	}
	return nil
}
