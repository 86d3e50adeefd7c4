// Package analysis runs telescope processors over a stream of events.
//
// A Processor books its histograms once, then turns every event into a
// self-contained Outcome. Events may be processed by several workers; the
// outcomes are filled into the histogram registry and the run summary by a
// single collector, so processors never share mutable state across events.
package analysis

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/histos"
	"github.com/decibelcooper/eutel/lcioio"
	"github.com/decibelcooper/eutel/trackfit"
)

type Logger interface {
	Info(message string, module string)
	Error(message string)
}

// Event is one telescope readout. Either collection may be nil when the
// input file does not carry it.
type Event struct {
	Run, Number int
	Hits        []lcioio.Hit
	Sensors     []lcioio.SensorData
}

// Outcome is the result of one processor on one event. Fill is only ever
// called from the collector goroutine.
type Outcome interface {
	Fill(reg *histos.Registry, sum *Summary)
}

type Processor interface {
	Name() string
	Book(reg *histos.Registry)
	Process(evt Event) (Outcome, error)
	End(reg *histos.Registry, sum *Summary)
}

// Context is the read-only state shared by all processors of a run.
type Context struct {
	Config     eutel.Configuration
	Geo        *geometry.Telescope
	Cuts       eutel.Cuts
	Resolution trackfit.Resolution
	Material   trackfit.Material
	Logger     Logger
}

// NewContext validates config against geo and derives the scaled cuts and
// the scattering model.
func NewContext(config eutel.Configuration, geo *geometry.Telescope, logger Logger) (Context, error) {
	if err := config.Validate(geo.NPlanes()); err != nil {
		return Context{}, errors.Wrap(err, "invalid configuration")
	}
	res, err := trackfit.NewResolution(config.Resolution)
	if err != nil {
		return Context{}, err
	}
	mat, err := trackfit.NewMaterial(geo, config.Thickness, config.KaptonThickness, config.BeamEnergy, config.Kappa)
	if err != nil {
		return Context{}, err
	}
	return Context{
		Config:     config,
		Geo:        geo,
		Cuts:       config.ScaledCuts(geo.Spacing()),
		Resolution: res,
		Material:   mat,
		Logger:     logger,
	}, nil
}

// HitMaker returns the hit maker configured for this run.
func (c Context) HitMaker() HitMaker {
	return HitMaker{Geo: c.Geo, Resolution: c.Resolution, Tolerance: c.Config.PlaneTolerance}
}

// Constructor creates a processor for a run.
type Constructor func(ctx Context) (Processor, error)

// Registry maps processor names to constructors. It is populated explicitly
// by the commands.
type Registry struct {
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry holds every processor of this package.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("TripletGBL", NewTripletGBL)
	r.MustRegister("PlaneEfficiency", NewPlaneEfficiency)
	r.MustRegister("ClusterAnalysis", NewClusterAnalysis)
	return r
}

func (r *Registry) Register(name string, ctor Constructor) error {
	if _, ok := r.ctors[name]; ok {
		return fmt.Errorf("analysis: processor %q registered twice", name)
	}
	r.ctors[name] = ctor
	return nil
}

func (r *Registry) MustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// New creates the named processors in order.
func (r *Registry) New(ctx Context, names ...string) ([]Processor, error) {
	procs := make([]Processor, 0, len(names))
	for _, name := range names {
		ctor, ok := r.ctors[name]
		if !ok {
			return nil, fmt.Errorf("analysis: unknown processor %q (have %v)", name, r.Names())
		}
		p, err := ctor(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "creating processor %q", name)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func (r *Registry) Names() []string {
	names := maps.Keys(r.ctors)
	sort.Strings(names)
	return names
}
