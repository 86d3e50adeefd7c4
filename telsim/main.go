package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/lcioio"
	"github.com/decibelcooper/eutel/sim"
	"github.com/decibelcooper/eutel/trackfit"
)

var (
	configFile   = flag.String("config", "", "JSON steering file for beam, material and geometry")
	output       = flag.String("output", "telsim.slcio", "output LCIO file")
	nEvents      = flag.Int("n", 10000, "number of events")
	run          = flag.Int("run", 1, "run number")
	tracks       = flag.Int("tracks", 1, "tracks per event")
	spotX        = flag.Float64("spotx", 2, "beam spot sigma in x (mm)")
	spotY        = flag.Float64("spoty", 1, "beam spot sigma in y (mm)")
	divergence   = flag.Float64("divergence", 1e-3, "beam divergence sigma (rad)")
	inefficiency = flag.Float64("ineff", 0, "probability to lose a hit")
	noise        = flag.Float64("noise", 0, "mean number of noise clusters per plane and event")
	noHits       = flag.Bool("nohits", false, "write only zero-suppressed pixel data")
	seed         = flag.Uint64("seed", 1, "random seed, equal seeds give identical runs")
	settings     eutel.SettingFlags
)

func init() {
	flag.Var(&settings, "set", "steering override as key=value, may be repeated")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options]

Generates straight-track test beam events with multiple scattering and
writes them as LCIO hit and zero-suppressed collections.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	logger := eutel.NewLogger()
	if err := generate(logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func generate(logger eutel.Logger) error {
	config, geo, err := eutel.Setup(*configFile, &settings)
	if err != nil {
		return err
	}
	mat, err := trackfit.NewMaterial(geo, config.Thickness, config.KaptonThickness, config.BeamEnergy, config.Kappa)
	if err != nil {
		return err
	}
	res, err := trackfit.NewResolution(config.Resolution)
	if err != nil {
		return err
	}

	gen := sim.NewGenerator(geo, mat, res.For(0), *seed)
	gen.Tracks = *tracks
	gen.SpotX, gen.SpotY = *spotX, *spotY
	gen.Divergence = *divergence
	gen.Inefficiency = *inefficiency
	gen.NoiseHits = *noise

	w, err := lcioio.Create(*output, config.HitCollection, config.ZSCollection)
	if err != nil {
		return err
	}
	if err := w.WriteRunHeader(*run, "telsim", fmt.Sprintf("%g GeV, %d planes", config.BeamEnergy, geo.NPlanes())); err != nil {
		return err
	}
	for i := 0; i < *nEvents; i++ {
		evt := gen.Event(*run, i)
		hits := evt.Hits
		if *noHits {
			hits = nil
		}
		if err := w.WriteEvent(evt.Run, evt.Number, hits, evt.Sensors); err != nil {
			return err
		}
		if config.Verbosity > 0 && i%1000 == 0 {
			logger.Info(fmt.Sprintf("generated event %d", i), "telsim")
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("%d events written to %s", *nEvents, *output), "telsim")
	return nil
}
