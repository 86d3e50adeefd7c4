package shape

// Axis selects the mirror used by SymmetryPairs.
type Axis int

const (
	// AxisX pairs shapes with their left-right mirror image.
	AxisX Axis = iota
	// AxisY pairs shapes with their up-down mirror image.
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "unknown"
	}
}

func (a Axis) mirror(c Cluster) Cluster {
	if a == AxisY {
		return c.MirrorY()
	}
	return c.MirrorX()
}

var neighbourSteps = [8]Offset{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// FindReferenceClusters enumerates every 8-connected pixel group of 1 to
// sizeMax pixels, keeping one entry per equivalence class under rotations
// and reflections. Entries are ordered by size, then by discovery.
func FindReferenceClusters(sizeMax int) []Cluster {
	return enumerate(sizeMax, Cluster.FreeKey, Cluster.freeForm)
}

// FindReferenceClustersOriented enumerates the same groups but only merges
// translated copies, so a shape and its mirror image get distinct entries.
func FindReferenceClustersOriented(sizeMax int) []Cluster {
	return enumerate(sizeMax, Cluster.Key, func(c Cluster) Cluster { return c })
}

func enumerate(sizeMax int, key func(Cluster) string, represent func(Cluster) Cluster) []Cluster {
	if sizeMax < 1 {
		return nil
	}
	catalogue := []Cluster{New(Offset{0, 0})}
	generation := catalogue
	for size := 2; size <= sizeMax; size++ {
		seen := make(map[string]bool)
		var next []Cluster
		for _, parent := range generation {
			for _, o := range parent.offsets {
				for _, step := range neighbourSteps {
					p := Offset{o.X + step.X, o.Y + step.Y}
					if parent.Contains(p) {
						continue
					}
					grown := New(append(parent.Offsets(), p)...)
					k := key(grown)
					if seen[k] {
						continue
					}
					seen[k] = true
					next = append(next, represent(grown))
				}
			}
		}
		catalogue = append(catalogue, next...)
		generation = next
	}
	return catalogue
}

// WhichClusterShape returns the catalogue index matching c under any of the
// eight symmetry transforms, or -1 if the shape is unknown.
func WhichClusterShape(c Cluster, catalogue []Cluster) int {
	if c.Size() == 0 {
		return -1
	}
	ts := c.Transforms()
	for i, ref := range catalogue {
		if ref.Size() != c.Size() {
			continue
		}
		for _, t := range ts {
			if ref.Equal(t) {
				return i
			}
		}
	}
	return -1
}

// WhichOrientedShape returns the index of the catalogue entry identical to
// c, without trying any transform, or -1.
func WhichOrientedShape(c Cluster, catalogue []Cluster) int {
	for i, ref := range catalogue {
		if ref.Equal(c) {
			return i
		}
	}
	return -1
}

// SymmetryPairs maps each catalogue index to the index of its mirror image
// about axis. An identical entry is preferred; otherwise the mirror is looked
// up under all transforms. Unmatched entries map to -1.
func SymmetryPairs(catalogue []Cluster, axis Axis) []int {
	pairs := make([]int, len(catalogue))
	for i, c := range catalogue {
		m := axis.mirror(c)
		j := WhichOrientedShape(m, catalogue)
		if j < 0 {
			j = WhichClusterShape(m, catalogue)
		}
		pairs[i] = j
	}
	return pairs
}

// SameShape groups catalogue indices that describe the same physical shape
// regardless of orientation. Groups are ordered by their first member.
func SameShape(catalogue []Cluster) [][]int {
	var groups [][]int
	index := make(map[string]int)
	for i, c := range catalogue {
		k := c.FreeKey()
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
