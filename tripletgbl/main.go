package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/profile"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/analysis"
	"github.com/decibelcooper/eutel/histos"
)

var (
	configFile = flag.String("config", "", "JSON steering file")
	output     = flag.String("output", "", "ROOT output file, overrides file_out")
	workers    = flag.Int("workers", 0, "number of workers, overrides num_workers")
	dut        = flag.Int("dut", -2, "device under test plane, overrides dut_plane")
	profMode   = flag.String("profile", "", "write a \"cpu\" or \"mem\" profile to the working directory")
	settings   eutel.SettingFlags
	resolution eutel.FloatArrayFlags
	effPlanes  eutel.IntArrayFlags
)

func init() {
	flag.Var(&settings, "set", "steering override as key=value, may be repeated")
	flag.Var(&resolution, "res", "intrinsic resolution per cluster size bucket (mm), repeat once per bucket")
	flag.Var(&effPlanes, "effplane", "plane to measure the efficiency of, may be repeated")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <lcio-input-files>...

Finds triplets on a six-plane telescope, fits the matched tracks with
broken lines and measures plane efficiencies.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	logger := eutel.NewLogger()
	if err := run(logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(logger analysis.Logger) error {
	var overrides []string
	if *workers > 0 {
		overrides = append(overrides, fmt.Sprintf("num_workers=%d", *workers))
	}
	if *dut > -2 {
		overrides = append(overrides, fmt.Sprintf("dut_plane=%d", *dut))
	}
	if resolution.IsSet() {
		b, _ := json.Marshal(resolution.Array)
		overrides = append(overrides, "resolution="+string(b))
	}
	if effPlanes.IsSet() {
		b, _ := json.Marshal(effPlanes.Array)
		overrides = append(overrides, "eff_planes="+string(b))
	}
	for _, o := range overrides {
		if err := settings.Set(o); err != nil {
			return err
		}
	}
	config, geo, err := eutel.Setup(*configFile, &settings)
	if err != nil {
		return err
	}
	if flag.NArg() > 0 {
		config.FileIn = flag.Args()
	}
	if *output != "" {
		config.FileOut = *output
	}
	if len(config.FileIn) == 0 {
		printUsage()
		return fmt.Errorf("no input files")
	}

	switch *profMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profMode)
	}

	eutel.PrintConfiguration(config, logger)

	ctx, err := analysis.NewContext(config, geo, logger)
	if err != nil {
		return err
	}
	procs, err := analysis.DefaultRegistry().New(ctx, config.Processors...)
	if err != nil {
		return err
	}
	runner := analysis.NewRunner(ctx, procs)

	src := analysis.NewLCIOSource(config.FileIn, config.HitCollection, config.ZSCollection)
	defer src.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := runner.Run(sigCtx, src); err != nil {
		logger.Error(fmt.Sprintf("event loop stopped: %v", err))
	}
	runner.End()

	if err := runner.Histos.WriteROOT(config.FileOut); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("histograms written to %s", config.FileOut), "main")

	if config.PlotPrefix != "" {
		if err := savePlots(config.PlotPrefix, geo.NPlanes(), runner); err != nil {
			return err
		}
	}
	return nil
}

func savePlots(prefix string, nplanes int, runner *analysis.Runner) error {
	reg := runner.Histos
	for i := 0; i < nplanes; i++ {
		for _, axis := range []string{"x", "y"} {
			h, ok := reg.H1D(fmt.Sprintf("gbl_res_%s_plane%d", axis, i))
			if !ok {
				continue
			}
			labels := histos.Labels{
				Title:  reg.Title(fmt.Sprintf("gbl_res_%s_plane%d", axis, i)),
				X:      "residual (µm)",
				XScale: 1000,
			}
			fname := fmt.Sprintf("%s_gbl_res_%s_plane%d.png", prefix, axis, i)
			if err := histos.SaveH1D(fname, labels, nil, h); err != nil {
				return err
			}
		}
	}

	var points []histos.Point
	for i := 0; i < nplanes; i++ {
		eff, err, n := runner.Summary.Efficiency(i)
		if n == 0 {
			continue
		}
		points = append(points, histos.Point{X: float64(i), Y: eff, ErrY: err})
	}
	if len(points) == 0 {
		return nil
	}
	return histos.SavePoints(prefix+"_efficiency.png", histos.Labels{X: "plane", Y: "efficiency"}, nil, points)
}
