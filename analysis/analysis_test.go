package analysis

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/histos"
	"github.com/decibelcooper/eutel/lcioio"
	"github.com/decibelcooper/eutel/pixel"
	"github.com/decibelcooper/eutel/shape"
	"github.com/decibelcooper/eutel/tracking"
)

func testContext(t *testing.T, edit func(*eutel.Configuration)) Context {
	t.Helper()
	config := eutel.DefaultConfiguration()
	if edit != nil {
		edit(&config)
	}
	ctx, err := NewContext(config, geometry.Default(20), eutel.NullLogger{})
	require.NoError(t, err)
	return ctx
}

func trackEvent(number int, x0, y0, sx, sy float64) Event {
	evt := Event{Number: number}
	for i := 0; i < 6; i++ {
		z := 20 * float64(i)
		evt.Hits = append(evt.Hits, lcioio.Hit{
			SensorID:    i,
			Pos:         [3]float64{x0 + sx*z, y0 + sy*z, z},
			ClusterSize: 2,
		})
	}
	return evt
}

func trackEvents(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = trackEvent(i, -4+0.5*float64(i%16), 1, 0, -0.005)
	}
	return events
}

func run(t *testing.T, ctx Context, names []string, src Source) *Runner {
	t.Helper()
	procs, err := DefaultRegistry().New(ctx, names...)
	require.NoError(t, err)
	r := NewRunner(ctx, procs)
	require.NoError(t, r.Run(context.Background(), src))
	r.End()
	return r
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"ClusterAnalysis", "PlaneEfficiency", "TripletGBL"}, reg.Names())
	assert.Error(t, reg.Register("TripletGBL", NewTripletGBL))

	_, err := reg.New(testContext(t, nil), "NoSuchProcessor")
	assert.Error(t, err)
}

func TestNewContextRejectsConfig(t *testing.T) {
	config := eutel.DefaultConfiguration()
	config.Thickness = []float64{0.05}
	_, err := NewContext(config, geometry.Default(20), eutel.NullLogger{})
	assert.Error(t, err)
}

func TestTripletGBLStraightTracks(t *testing.T) {
	for _, workers := range []int{1, 4} {
		ctx := testContext(t, func(c *eutel.Configuration) { c.NumWorkers = workers })
		r := run(t, ctx, []string{"TripletGBL", "PlaneEfficiency"}, &SliceSource{Events: trackEvents(40)})

		sum := r.Summary
		assert.Equal(t, 40, sum.Events, "workers=%d", workers)
		assert.Equal(t, 40, sum.Counter(CountTracks))
		assert.Equal(t, 40, sum.Counter(CountGoodFits))
		assert.Zero(t, sum.Errors)
		for plane := 0; plane < 6; plane++ {
			eff, _, n := sum.Efficiency(plane)
			assert.Equal(t, 40, n)
			assert.Equal(t, 1.0, eff)
		}

		h, ok := r.Histos.H1D("ntracks")
		require.True(t, ok)
		assert.Equal(t, int64(40), h.Entries())
		assert.Empty(t, r.Histos.Missing())
	}
}

func TestMissingPlaneIsInefficient(t *testing.T) {
	events := trackEvents(10)
	for i := range events {
		var hits []lcioio.Hit
		for _, h := range events[i].Hits {
			if h.SensorID != 4 {
				hits = append(hits, h)
			}
		}
		events[i].Hits = hits
	}
	ctx := testContext(t, nil)
	r := run(t, ctx, []string{"TripletGBL", "PlaneEfficiency"}, &SliceSource{Events: events})

	eff, _, n := r.Summary.Efficiency(4)
	assert.Equal(t, 10, n)
	assert.Zero(t, eff)
	assert.Zero(t, r.Summary.Counter(CountTracks), "no driplet without plane 4")
}

func TestTooManyClusters(t *testing.T) {
	evt := trackEvent(0, 0, 0, 0, 0)
	for i := 0; i < 3; i++ {
		evt.Hits = append(evt.Hits, lcioio.Hit{SensorID: 1, Pos: [3]float64{float64(i), 2, 20}})
	}
	ctx := testContext(t, func(c *eutel.Configuration) { c.MaxClustersPerPlane = 3 })
	r := run(t, ctx, []string{"TripletGBL"}, &SliceSource{Events: []Event{evt}})
	assert.Equal(t, 1, r.Summary.Counter(CountTooManyClusters))
	assert.Zero(t, r.Summary.Counter(CountTracks))
}

func TestUnassociatedHit(t *testing.T) {
	evt := trackEvent(0, 0, 0, 0, 0)
	evt.Hits = append(evt.Hits, lcioio.Hit{SensorID: 42, Pos: [3]float64{0, 0, 30}})
	ctx := testContext(t, nil)
	r := run(t, ctx, []string{"TripletGBL", "PlaneEfficiency"}, &SliceSource{Events: []Event{evt}})
	assert.Equal(t, 1, r.Summary.Counter(CountUnassociated))
	assert.Equal(t, 1, r.Summary.Counter(CountEffUnassociated))
	assert.Zero(t, r.Summary.Errors)
	_, _, n := r.Summary.Efficiency(0)
	assert.Zero(t, n)
}

type panicking struct{ on int }

func (p panicking) Name() string                   { return "panicking" }
func (p panicking) Book(*histos.Registry)          {}
func (p panicking) End(*histos.Registry, *Summary) {}
func (p panicking) Process(evt Event) (Outcome, error) {
	if evt.Number == p.on {
		panic("bad event")
	}
	return nil, nil
}

func TestRunnerRecoversPerEvent(t *testing.T) {
	ctx := testContext(t, nil)
	gbl, err := NewTripletGBL(ctx)
	require.NoError(t, err)
	r := NewRunner(ctx, []Processor{gbl, panicking{on: 3}})
	require.NoError(t, r.Run(context.Background(), &SliceSource{Events: trackEvents(6)}))

	assert.Equal(t, 5, r.Summary.Events)
	assert.Equal(t, 1, r.Summary.Skipped)
	assert.Equal(t, 1, r.Summary.Errors)
	assert.Equal(t, 5, r.Summary.Counter(CountTracks), "the bad event contributes nothing")
	h, ok := r.Histos.H1D("ntracks")
	require.True(t, ok)
	assert.Equal(t, int64(5), h.Entries())
}

type gappySource struct {
	SliceSource
	bad int
}

func (s *gappySource) Next() (Event, error) {
	evt, err := s.SliceSource.Next()
	if err == nil && evt.Number == s.bad {
		return evt, errors.Wrap(lcioio.ErrCollectionNotFound, "test")
	}
	return evt, err
}

func TestSkipMaxEvents(t *testing.T) {
	ctx := testContext(t, func(c *eutel.Configuration) {
		c.Skip = 2
		c.MaxEvents = 5
	})
	src := &gappySource{SliceSource: SliceSource{Events: trackEvents(20)}, bad: 4}
	r := run(t, ctx, []string{"TripletGBL"}, src)
	assert.Equal(t, 1, r.Summary.Skipped)
	assert.Equal(t, 4, r.Summary.Events)
	assert.Equal(t, 4, r.Summary.Counter(CountTracks))
}

type failingSource struct{}

func (failingSource) Next() (Event, error) { return Event{}, io.ErrUnexpectedEOF }

func TestRunnerSourceError(t *testing.T) {
	ctx := testContext(t, nil)
	procs, err := DefaultRegistry().New(ctx, "TripletGBL")
	require.NoError(t, err)
	r := NewRunner(ctx, procs)
	assert.ErrorIs(t, r.Run(context.Background(), failingSource{}), io.ErrUnexpectedEOF)
}

func TestHitMakerFromSensors(t *testing.T) {
	ctx := testContext(t, nil)
	hm := ctx.HitMaker()
	hits, err := hm.FromSensors([]lcioio.SensorData{{
		SensorID: 2,
		Type:     pixel.TypeGeneric,
		Pixels:   []pixel.Pixel{pixel.New(576, 288, 1, 0), pixel.New(577, 288, 1, 0), pixel.New(10, 10, 0, 0)},
	}})
	require.NoError(t, err)
	require.Len(t, hits, 1, "the zero charge cluster is dropped")
	h := hits[0]
	assert.Equal(t, 2, h.Plane)
	assert.Equal(t, 2, h.ClusterSize)
	assert.InDelta(t, 0.0184, h.X, 1e-9)
	assert.InDelta(t, 0.0092, h.Y, 1e-9)
	assert.InDelta(t, 40.0, h.Z, 1e-9)
	assert.Equal(t, ctx.Resolution.For(2), h.Ex)

	_, err = hm.FromSensors([]lcioio.SensorData{{SensorID: 9}})
	assert.Error(t, err)
}

func TestHitMakerFromHitsUsesZForUnknownSensor(t *testing.T) {
	ctx := testContext(t, nil)
	hm := ctx.HitMaker()
	hits, err := hm.FromHits([]lcioio.Hit{
		{SensorID: 1, Pos: [3]float64{0, 0, 20}, ClusterSize: 2},
		{SensorID: 42, Pos: [3]float64{0.1, 0.2, 40.3}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Plane)
	assert.Equal(t, 2, hits[1].Plane)
	assert.Equal(t, 0.2, hits[1].Y)

	_, err = hm.FromHits([]lcioio.Hit{{SensorID: 42, Pos: [3]float64{0, 0, 30}}})
	assert.ErrorIs(t, err, tracking.ErrUnassociatedHit)
}

func pixelsAt(x, y int16, offsets ...shape.Offset) []pixel.Pixel {
	var out []pixel.Pixel
	for _, o := range offsets {
		out = append(out, pixel.New(x+int16(o.X), y+int16(o.Y), 10, 0))
	}
	return out
}

func TestClusterAnalysisAsymmetry(t *testing.T) {
	right := []shape.Offset{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	left := []shape.Offset{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	var events []Event
	for i := 0; i < 4; i++ {
		offsets := right
		if i == 3 {
			offsets = left
		}
		events = append(events, Event{Number: i, Sensors: []lcioio.SensorData{
			{SensorID: 0, Type: pixel.TypeGeneric, Pixels: pixelsAt(100, 100, offsets...)},
		}})
	}
	ctx := testContext(t, nil)
	procs, err := DefaultRegistry().New(ctx, "ClusterAnalysis")
	require.NoError(t, err)
	r := NewRunner(ctx, procs)
	require.NoError(t, r.Run(context.Background(), &SliceSource{Events: events}))

	ca := procs[0].(*ClusterAnalysis)
	asym := ca.Asymmetries(shape.AxisX)
	require.Len(t, asym, 1)
	assert.Equal(t, 4, asym[0].N+asym[0].M)
	assert.InDelta(t, 0.5, math.Abs(asym[0].Value()), 1e-12)

	h, ok := r.Histos.H1D(ShapeName(0))
	require.True(t, ok)
	assert.Equal(t, int64(4), h.Entries())
	assert.Equal(t, 4, r.Summary.Counter("clusters"))

	seed, ok := r.Histos.H1D(planeName("cluster_seed_fraction_plane%d", 0))
	require.True(t, ok)
	assert.Equal(t, int64(4), seed.Entries())
	assert.InDelta(t, 1.0/3, seed.XMean(), 1e-9)
	r.End()
}
