package eutel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

type Configuration struct {
	BeamEnergy          float64   `json:"beam_energy"`
	DUTPlane            int       `json:"dut_plane"`
	MatchCut            float64   `json:"match_cut"`
	AngleCut            float64   `json:"angle_cut"`
	TripletResidualCut  float64   `json:"triplet_residual_cut"`
	IsolationCut        float64   `json:"isolation_cut"`
	EffRadius           float64   `json:"eff_radius"`
	Kappa               float64   `json:"kappa"`
	ProbChi2Cut         float64   `json:"probchi2_cut"`
	Resolution          []float64 `json:"resolution"`
	Thickness           []float64 `json:"thickness"`
	KaptonThickness     float64   `json:"kapton_thickness"`
	MaxShapePixels      int       `json:"max_shape_pixels"`
	MaxClustersPerPlane int       `json:"max_clusters_per_plane"`
	PlaneTolerance      float64   `json:"plane_tolerance"`
	HitCollection       string    `json:"hit_collection"`
	ZSCollection        string    `json:"zs_collection"`
	GeometryFile        string    `json:"geometry_file"`
	FileIn              []string  `json:"file_in"`
	FileOut             string    `json:"file_out"`
	PlotPrefix          string    `json:"plot_prefix"`
	NumWorkers          int       `json:"num_workers"`
	MaxEvents           int       `json:"max_events"`
	Skip                int       `json:"skip"`
	Verbosity           int       `json:"verbosity"`
	DownWeighting       string    `json:"down_weighting"`
	Processors          []string  `json:"processors"`
	EffPlanes           []int     `json:"eff_planes"`
}

// NResolutionBins is the number of cluster size buckets of the resolution table.
const NResolutionBins = 8

func DefaultConfiguration() Configuration {
	var config Configuration

	// Set default values
	config.BeamEnergy = 6.0
	config.DUTPlane = -1
	config.MatchCut = 0.1
	config.AngleCut = 0.01
	config.TripletResidualCut = 0.1
	config.IsolationCut = -1
	config.EffRadius = 0.1
	config.Kappa = 1.0
	config.ProbChi2Cut = 0.01
	config.Resolution = []float64{3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3}
	config.Thickness = nil
	config.KaptonThickness = 0.05
	config.MaxShapePixels = 4
	config.MaxClustersPerPlane = 100
	config.PlaneTolerance = 1.0
	config.HitCollection = "hit"
	config.ZSCollection = "zsdata"
	config.FileOut = "histos.root"
	config.NumWorkers = 1
	config.MaxEvents = 1000000000
	config.Skip = 0
	config.Verbosity = 0
	config.Processors = []string{"TripletGBL"}
	config.EffPlanes = []int{0, 1, 2, 3, 4, 5}
	return config
}

// LoadConfiguration reads a JSON steering file on top of the defaults. An
// empty filename gives the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return config, errors.Wrapf(err, "decoding %q", filename)
	}
	return config, nil
}

// Set overrides one key with a JSON value. Values that are not valid JSON are
// taken as strings.
func (c *Configuration) Set(key, value string) error {
	try := func(v string) error {
		dec := json.NewDecoder(bytes.NewReader([]byte(fmt.Sprintf("{%q: %s}", key, v))))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	}
	if err := try(value); err != nil {
		if err2 := try(strconv.Quote(value)); err2 != nil {
			return errors.Wrapf(err, "setting %s=%s", key, value)
		}
	}
	return nil
}

// Validate checks the configuration against a telescope of nplanes planes.
func (c Configuration) Validate(nplanes int) error {
	switch {
	case c.BeamEnergy <= 0:
		return fmt.Errorf("beam_energy must be positive, got %g", c.BeamEnergy)
	case len(c.Resolution) != NResolutionBins:
		return fmt.Errorf("resolution needs %d entries, got %d", NResolutionBins, len(c.Resolution))
	case c.Thickness != nil && len(c.Thickness) != nplanes:
		return fmt.Errorf("thickness needs %d entries, got %d", nplanes, len(c.Thickness))
	case c.DUTPlane < -1 || c.DUTPlane >= nplanes:
		return fmt.Errorf("dut_plane %d outside [-1, %d)", c.DUTPlane, nplanes)
	case c.MatchCut <= 0 || c.AngleCut <= 0 || c.TripletResidualCut <= 0:
		return fmt.Errorf("match_cut, angle_cut and triplet_residual_cut must be positive")
	case c.EffRadius <= 0:
		return fmt.Errorf("eff_radius must be positive, got %g", c.EffRadius)
	case c.ProbChi2Cut < 0 || c.ProbChi2Cut >= 1:
		return fmt.Errorf("probchi2_cut %g outside [0, 1)", c.ProbChi2Cut)
	case c.MaxShapePixels < 1 || c.MaxShapePixels > 6:
		return fmt.Errorf("max_shape_pixels %d outside [1, 6]", c.MaxShapePixels)
	case c.NumWorkers < 1:
		return fmt.Errorf("num_workers must be at least 1, got %d", c.NumWorkers)
	case c.PlaneTolerance <= 0:
		return fmt.Errorf("plane_tolerance must be positive, got %g", c.PlaneTolerance)
	}
	for _, p := range c.EffPlanes {
		if p < 0 || p >= nplanes {
			return fmt.Errorf("eff_planes: plane %d outside [0, %d)", p, nplanes)
		}
	}
	return nil
}

// Cuts are the spatial cuts after beam energy and plane spacing scaling.
type Cuts struct {
	Match           float64
	Isolation       float64
	EffRadius       float64
	TripletResidual float64
	Angle           float64
}

// ScaledCuts scales the cuts, tuned for 6 GeV and 20 mm spacing, to this
// beam and telescope. A negative isolation cut becomes three times the match
// cut; zero disables isolation.
func (c Configuration) ScaledCuts(spacing float64) Cuts {
	scale := 6.0 / c.BeamEnergy * spacing / 20.0
	cuts := Cuts{
		Match:           c.MatchCut * scale,
		EffRadius:       c.EffRadius * scale,
		TripletResidual: c.TripletResidualCut * scale,
		Angle:           c.AngleCut,
	}
	switch {
	case c.IsolationCut < 0:
		cuts.Isolation = 3 * cuts.Match
	case c.IsolationCut > 0:
		cuts.Isolation = c.IsolationCut * scale
	}
	return cuts
}

type infoLogger interface {
	Info(message string, module string)
}

func PrintConfiguration(config Configuration, logger infoLogger) {
	logger.Info(fmt.Sprintf("Beam energy: %g GeV", config.BeamEnergy), "config")
	logger.Info(fmt.Sprintf("DUT plane: %d", config.DUTPlane), "config")
	logger.Info(fmt.Sprintf("Match cut: %g mm", config.MatchCut), "config")
	logger.Info(fmt.Sprintf("Angle cut: %g rad", config.AngleCut), "config")
	logger.Info(fmt.Sprintf("Triplet residual cut: %g mm", config.TripletResidualCut), "config")
	logger.Info(fmt.Sprintf("Isolation cut: %g mm", config.IsolationCut), "config")
	logger.Info(fmt.Sprintf("Efficiency radius: %g mm", config.EffRadius), "config")
	logger.Info(fmt.Sprintf("Kappa: %g", config.Kappa), "config")
	logger.Info(fmt.Sprintf("Prob(chi2) cut: %g", config.ProbChi2Cut), "config")
	logger.Info(fmt.Sprintf("Resolution: %v mm", config.Resolution), "config")
	logger.Info(fmt.Sprintf("Thickness: %v mm", config.Thickness), "config")
	logger.Info(fmt.Sprintf("Kapton thickness: %g mm", config.KaptonThickness), "config")
	logger.Info(fmt.Sprintf("Max shape pixels: %d", config.MaxShapePixels), "config")
	logger.Info(fmt.Sprintf("Max clusters per plane: %d", config.MaxClustersPerPlane), "config")
	logger.Info(fmt.Sprintf("Plane tolerance: %g mm", config.PlaneTolerance), "config")
	logger.Info(fmt.Sprintf("Hit collection: %s", config.HitCollection), "config")
	logger.Info(fmt.Sprintf("ZS collection: %s", config.ZSCollection), "config")
	logger.Info(fmt.Sprintf("Geometry file: %s", config.GeometryFile), "config")
	logger.Info(fmt.Sprintf("Files in: %v", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Plot prefix: %s", config.PlotPrefix), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Down-weighting: %q", config.DownWeighting), "config")
	logger.Info(fmt.Sprintf("Processors: %v", config.Processors), "config")
	logger.Info(fmt.Sprintf("Efficiency planes: %v", config.EffPlanes), "config")
}
