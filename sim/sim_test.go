package sim

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/eutel"
	"github.com/decibelcooper/eutel/analysis"
	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/lcioio"
)

func setup(t *testing.T) (analysis.Context, Generator) {
	t.Helper()
	config := eutel.DefaultConfiguration()
	config.NumWorkers = 2
	ctx, err := analysis.NewContext(config, geometry.Default(20), eutel.NullLogger{})
	require.NoError(t, err)
	return ctx, NewGenerator(ctx.Geo, ctx.Material, ctx.Resolution.For(2), 42)
}

func writeRun(t *testing.T, gen Generator, n int, withHits bool) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "sim.slcio")
	w, err := lcioio.Create(fname, "hit", "zsdata")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		evt := gen.Event(1, i)
		hits := evt.Hits
		if !withHits {
			hits = nil
		}
		require.NoError(t, w.WriteEvent(evt.Run, evt.Number, hits, evt.Sensors))
	}
	require.NoError(t, w.Close())
	return fname
}

func runFile(t *testing.T, ctx analysis.Context, fname string, names ...string) *analysis.Runner {
	t.Helper()
	procs, err := analysis.DefaultRegistry().New(ctx, names...)
	require.NoError(t, err)
	r := analysis.NewRunner(ctx, procs)
	src := analysis.NewLCIOSource([]string{fname}, "hit", "zsdata")
	defer src.Close()
	require.NoError(t, r.Run(context.Background(), src))
	r.End()
	return r
}

func TestEventLayout(t *testing.T) {
	_, gen := setup(t)
	evt := gen.Event(7, 3)
	assert.Equal(t, 7, evt.Run)
	assert.Equal(t, 3, evt.Number)
	assert.Len(t, evt.Hits, 6)
	require.Len(t, evt.Sensors, 6)
	for i, s := range evt.Sensors {
		assert.Equal(t, i, s.SensorID)
		assert.NotEmpty(t, s.Pixels)
		assert.Equal(t, len(s.Pixels), evt.Hits[i].ClusterSize)
	}
}

func TestSeedReproducesEvents(t *testing.T) {
	ctx, gen := setup(t)
	gen.NoiseHits = 2
	other := NewGenerator(ctx.Geo, ctx.Material, ctx.Resolution.For(2), 42)
	other.NoiseHits = 2
	for i := 0; i < 5; i++ {
		assert.Equal(t, gen.Event(1, i), other.Event(1, i))
	}

	third := NewGenerator(ctx.Geo, ctx.Material, ctx.Resolution.For(2), 43)
	assert.NotEqual(t, gen.Event(1, 5).Hits, third.Event(1, 5).Hits)
}

func TestInefficiencyAndNoise(t *testing.T) {
	_, gen := setup(t)
	gen.Inefficiency = 1
	evt := gen.Event(1, 0)
	assert.Empty(t, evt.Hits)

	gen.Inefficiency = 0
	gen.Tracks = 0
	gen.NoiseHits = 5
	var total int
	for i := 0; i < 20; i++ {
		total += len(gen.Event(1, i).Hits)
	}
	assert.InDelta(t, 20*6*5, total, 150)
}

func TestReconstructSimulatedHits(t *testing.T) {
	ctx, gen := setup(t)
	const n = 200
	fname := writeRun(t, gen, n, true)
	r := runFile(t, ctx, fname, "TripletGBL", "PlaneEfficiency")

	sum := r.Summary
	assert.Equal(t, n, sum.Events)
	assert.GreaterOrEqual(t, sum.Counter(analysis.CountTracks), n*95/100)
	assert.GreaterOrEqual(t, sum.Counter(analysis.CountGoodFits), sum.Counter(analysis.CountTracks)*8/10)
	for plane := 0; plane < 6; plane++ {
		eff, _, tested := sum.Efficiency(plane)
		assert.Greater(t, tested, 0)
		assert.GreaterOrEqual(t, eff, 0.95, "plane %d", plane)
	}
}

func TestReconstructSimulatedPixels(t *testing.T) {
	ctx, gen := setup(t)
	const n = 100
	fname := writeRun(t, gen, n, false)
	r := runFile(t, ctx, fname, "TripletGBL", "ClusterAnalysis")

	assert.Equal(t, n, r.Summary.Events)
	assert.GreaterOrEqual(t, r.Summary.Counter(analysis.CountTracks), n*9/10)
	assert.Equal(t, 6*n, r.Summary.Counter("clusters"))
	assert.Zero(t, r.Summary.Counter("unknown cluster shapes"))
}
