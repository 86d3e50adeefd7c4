// Package shape classifies zero-suppressed pixel clusters by the topology of
// their fired pixels, independently of position and orientation.
package shape

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Offset is a pixel position relative to the cluster origin.
type Offset struct {
	X, Y int
}

// Cluster is a set of pixel offsets in canonical placement: the minimum x
// and y are zero and the offsets are sorted by x, then y.
type Cluster struct {
	offsets []Offset
}

// New returns the canonical cluster made of the given offsets.
func New(offsets ...Offset) Cluster {
	c := Cluster{offsets: append([]Offset(nil), offsets...)}
	c.normalize()
	return c
}

// SetValues stores the raw offsets of one decoded cluster.
func (c *Cluster) SetValues(size int, xs, ys []int) error {
	if size != len(xs) || size != len(ys) {
		return fmt.Errorf("shape: size %d does not match %d x and %d y values", size, len(xs), len(ys))
	}
	c.offsets = make([]Offset, size)
	for i := range xs {
		c.offsets[i] = Offset{xs[i], ys[i]}
	}
	c.normalize()
	return nil
}

// Size is the number of pixels.
func (c Cluster) Size() int {
	return len(c.offsets)
}

// Offsets returns a copy of the canonical offsets.
func (c Cluster) Offsets() []Offset {
	return append([]Offset(nil), c.offsets...)
}

func (c *Cluster) normalize() {
	if len(c.offsets) == 0 {
		return
	}
	minX, minY := c.offsets[0].X, c.offsets[0].Y
	for _, o := range c.offsets[1:] {
		minX = min(minX, o.X)
		minY = min(minY, o.Y)
	}
	for i := range c.offsets {
		c.offsets[i].X -= minX
		c.offsets[i].Y -= minY
	}
	sort.Slice(c.offsets, func(i, j int) bool {
		if c.offsets[i].X != c.offsets[j].X {
			return c.offsets[i].X < c.offsets[j].X
		}
		return c.offsets[i].Y < c.offsets[j].Y
	})
}

func (c Cluster) mapped(f func(Offset) Offset) Cluster {
	out := Cluster{offsets: make([]Offset, len(c.offsets))}
	for i, o := range c.offsets {
		out.offsets[i] = f(o)
	}
	out.normalize()
	return out
}

// MirrorX reflects the cluster left-right (x -> -x).
func (c Cluster) MirrorX() Cluster {
	return c.mapped(func(o Offset) Offset { return Offset{-o.X, o.Y} })
}

// MirrorY reflects the cluster up-down (y -> -y).
func (c Cluster) MirrorY() Cluster {
	return c.mapped(func(o Offset) Offset { return Offset{o.X, -o.Y} })
}

// Rotate90 rotates the cluster by 90 degrees counter-clockwise.
func (c Cluster) Rotate90() Cluster {
	return c.mapped(func(o Offset) Offset { return Offset{-o.Y, o.X} })
}

// Transforms returns the images of c under the dihedral group of the square:
// the four rotations followed by the four rotations of the x-mirror.
func (c Cluster) Transforms() [8]Cluster {
	var out [8]Cluster
	out[0] = c
	out[4] = c.MirrorX()
	for i := 1; i < 4; i++ {
		out[i] = out[i-1].Rotate90()
		out[i+4] = out[i+3].Rotate90()
	}
	return out
}

// Equal reports whether both clusters have identical canonical offsets.
func (c Cluster) Equal(o Cluster) bool {
	if len(c.offsets) != len(o.offsets) {
		return false
	}
	for i := range c.offsets {
		if c.offsets[i] != o.offsets[i] {
			return false
		}
	}
	return true
}

// Key is a string form of the canonical offsets, usable as a map key.
func (c Cluster) Key() string {
	var b strings.Builder
	for i, o := range c.offsets {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(o.X))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(o.Y))
	}
	return b.String()
}

// FreeKey identifies the cluster up to rotations and reflections.
func (c Cluster) FreeKey() string {
	return c.freeForm().Key()
}

// freeForm is the transform with the smallest key; it is the same for every
// member of a dihedral equivalence class.
func (c Cluster) freeForm() Cluster {
	ts := c.Transforms()
	best, bestKey := ts[0], ts[0].Key()
	for _, t := range ts[1:] {
		if k := t.Key(); k < bestKey {
			best, bestKey = t, k
		}
	}
	return best
}

// Contains reports whether the offset belongs to the cluster.
func (c Cluster) Contains(o Offset) bool {
	for _, p := range c.offsets {
		if p == o {
			return true
		}
	}
	return false
}

// String draws the cluster as rows of '#' and '.', top row first.
func (c Cluster) String() string {
	if len(c.offsets) == 0 {
		return ""
	}
	maxX, maxY := 0, 0
	for _, o := range c.offsets {
		maxX = max(maxX, o.X)
		maxY = max(maxY, o.Y)
	}
	var b strings.Builder
	for y := maxY; y >= 0; y-- {
		for x := 0; x <= maxX; x++ {
			if c.Contains(Offset{x, y}) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		if y > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
