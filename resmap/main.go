package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/analysis"
	"github.com/decibelcooper/eutel/histos"
)

var (
	configFile = flag.String("config", "", "JSON steering file")
	dut        = flag.Int("dut", 2, "plane whose unbiased residuals are mapped")
	axis       = flag.String("axis", "x", "residual component, x or y")
	resLimit   = flag.Float64("reslimit", 0.01, "maximum residual RMS in the color map (mm)")
	mean       = flag.Bool("mean", false, "map the mean residual instead of its RMS")
	title      = flag.String("title", "", "plot title")
	output     = flag.String("output", "out.png", "output file")
	settings   eutel.SettingFlags
)

func init() {
	flag.Var(&settings, "set", "steering override as key=value, may be repeated")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <lcio-input-file>

Maps the unbiased track residual on the device under test over the sensor.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 1 || (*axis != "x" && *axis != "y") {
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
	if err := settings.Set(fmt.Sprintf("dut_plane=%d", *dut)); err != nil {
		return err
	}
	config, geo, err := eutel.Setup(*configFile, &settings)
	if err != nil {
		return err
	}
	ctx, err := analysis.NewContext(config, geo, logger)
	if err != nil {
		return err
	}
	procs, err := analysis.DefaultRegistry().New(ctx, "TripletGBL")
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

	name := fmt.Sprintf("dut_res_%s_map", *axis)
	grid, ok := runner.Histos.ResGrid(name)
	if !ok {
		return fmt.Errorf("no residual map %q booked", name)
	}
	grid.Mean = *mean
	grid.Empty = math.NaN()

	zmin, zmax := 0.0, *resLimit
	if *mean {
		zmin = -*resLimit
	}
	labels := histos.Labels{Title: *title, X: "x (mm)", Y: "y (mm)"}
	if err := histos.SaveHeatMap(*output, labels, grid, zmin, zmax); err != nil {
		return err
	}
	return nil
}
