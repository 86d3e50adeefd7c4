package shape

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countBySize(catalogue []Cluster) map[int]int {
	counts := make(map[int]int)
	for _, c := range catalogue {
		counts[c.Size()]++
	}
	return counts
}

func TestFindReferenceClustersCounts(t *testing.T) {
	// Free 8-connected polyplets: 1, 2, 5, 22.
	free := FindReferenceClusters(4)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 5, 4: 22}, countBySize(free))
	assert.Len(t, free, 30)

	// Fixed polyplets: 1, 4, 20.
	oriented := FindReferenceClustersOriented(3)
	assert.Equal(t, map[int]int{1: 1, 2: 4, 3: 20}, countBySize(oriented))

	assert.Empty(t, FindReferenceClusters(0))
}

func TestFindReferenceClustersOrderedBySize(t *testing.T) {
	catalogue := FindReferenceClusters(4)
	for i := 1; i < len(catalogue); i++ {
		assert.LessOrEqual(t, catalogue[i-1].Size(), catalogue[i].Size())
	}
}

func TestCatalogueHasNoDuplicates(t *testing.T) {
	catalogue := FindReferenceClusters(4)
	for i := range catalogue {
		for j := range catalogue {
			if i == j {
				continue
			}
			for _, tr := range catalogue[i].Transforms() {
				require.False(t, tr.Equal(catalogue[j]), "entries %d and %d are the same shape:\n%v\n\n%v", i, j, catalogue[i], catalogue[j])
			}
		}
	}
}

func TestWhichClusterShapeIsSymmetryComplete(t *testing.T) {
	catalogue := FindReferenceClusters(4)
	for _, c := range FindReferenceClustersOriented(4) {
		want := WhichClusterShape(c, catalogue)
		require.GreaterOrEqual(t, want, 0, "shape not found:\n%v", c)
		for k, tr := range c.Transforms() {
			assert.Equal(t, want, WhichClusterShape(tr, catalogue), "transform %d of\n%v", k, c)
		}
	}
}

func TestWhichClusterShapeUnknown(t *testing.T) {
	catalogue := FindReferenceClusters(3)
	long := New(Offset{0, 0}, Offset{1, 0}, Offset{2, 0}, Offset{3, 0})
	assert.Equal(t, -1, WhichClusterShape(long, catalogue))
	assert.Equal(t, -1, WhichClusterShape(Cluster{}, catalogue))
}

func TestSetValues(t *testing.T) {
	var c Cluster
	require.NoError(t, c.SetValues(3, []int{10, 11, 11}, []int{5, 5, 6}))
	want := []Offset{{0, 0}, {1, 0}, {1, 1}}
	if diff := cmp.Diff(want, c.Offsets()); diff != "" {
		t.Errorf("offsets mismatch (-want +got):\n%s", diff)
	}
	assert.Error(t, c.SetValues(2, []int{1}, []int{1, 2}))
}

func TestTransformsAreCanonical(t *testing.T) {
	// L shape:
	//   #.
	//   ##
	l := New(Offset{0, 0}, Offset{1, 0}, Offset{0, 1})

	mx := l.MirrorX()
	if diff := cmp.Diff([]Offset{{0, 0}, {1, 0}, {1, 1}}, mx.Offsets()); diff != "" {
		t.Errorf("MirrorX mismatch (-want +got):\n%s", diff)
	}
	my := l.MirrorY()
	if diff := cmp.Diff([]Offset{{0, 0}, {0, 1}, {1, 1}}, my.Offsets()); diff != "" {
		t.Errorf("MirrorY mismatch (-want +got):\n%s", diff)
	}
	r := l.Rotate90()
	if diff := cmp.Diff([]Offset{{0, 0}, {1, 0}, {1, 1}}, r.Offsets()); diff != "" {
		t.Errorf("Rotate90 mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, l.Rotate90().Rotate90().Rotate90().Rotate90().Equal(l))
	assert.True(t, l.MirrorX().MirrorX().Equal(l))
	assert.Equal(t, "#.\n##", l.String())
}

func TestSymmetryPairs(t *testing.T) {
	catalogue := FindReferenceClustersOriented(3)
	for _, axis := range []Axis{AxisX, AxisY} {
		pairs := SymmetryPairs(catalogue, axis)
		require.Len(t, pairs, len(catalogue))
		for i, j := range pairs {
			require.GreaterOrEqual(t, j, 0)
			assert.Equal(t, i, pairs[j], "mirror about %v is not an involution", axis)
		}
	}

	horizontal := WhichOrientedShape(New(Offset{0, 0}, Offset{1, 0}), catalogue)
	rising := WhichOrientedShape(New(Offset{0, 0}, Offset{1, 1}), catalogue)
	falling := WhichOrientedShape(New(Offset{0, 1}, Offset{1, 0}), catalogue)
	pairs := SymmetryPairs(catalogue, AxisX)
	assert.Equal(t, horizontal, pairs[horizontal])
	assert.Equal(t, falling, pairs[rising])

	free := FindReferenceClusters(3)
	for i, j := range SymmetryPairs(free, AxisY) {
		assert.Equal(t, i, j)
	}
}

func TestSameShape(t *testing.T) {
	groups := SameShape(FindReferenceClustersOriented(3))
	assert.Len(t, groups, 1+2+5)
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, 25, total)

	for _, g := range SameShape(FindReferenceClusters(4)) {
		assert.Len(t, g, 1)
	}
}

func TestNeighbourPixels(t *testing.T) {
	xs := []int{5, 6, 7, 5, 9}
	ys := []int{5, 6, 5, 4, 9}
	used := make([]bool, len(xs))
	used[0] = true
	nx, ny := NeighbourPixels(5, 5, xs, ys, used)
	assert.Equal(t, []int{6, 5}, nx)
	assert.Equal(t, []int{6, 4}, ny)
	assert.Equal(t, []bool{true, true, false, true, false}, used)

	nx, _ = NeighbourPixels(5, 5, xs, ys, used)
	assert.Empty(t, nx)
}

func TestGroups(t *testing.T) {
	xs := []int{0, 1, 2, 10, 11, 0}
	ys := []int{0, 1, 2, 10, 10, 5}
	groups := Groups(xs, ys)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}, {5}}, groups)
}
