package shape

// NeighbourIndices returns the indices of the unused pixels at Chebyshev
// distance 1 from (x, y) and marks them used.
func NeighbourIndices(x, y int, xs, ys []int, used []bool) []int {
	var out []int
	for i := range xs {
		if used[i] {
			continue
		}
		dx, dy := xs[i]-x, ys[i]-y
		if dx == 0 && dy == 0 {
			continue
		}
		if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
			continue
		}
		used[i] = true
		out = append(out, i)
	}
	return out
}

// NeighbourPixels is NeighbourIndices returning coordinates.
func NeighbourPixels(x, y int, xs, ys []int, used []bool) (outX, outY []int) {
	for _, i := range NeighbourIndices(x, y, xs, ys, used) {
		outX = append(outX, xs[i])
		outY = append(outY, ys[i])
	}
	return outX, outY
}

// Groups partitions the pixels into 8-connected groups by flood fill, each
// group listing pixel indices in discovery order.
func Groups(xs, ys []int) [][]int {
	used := make([]bool, len(xs))
	var groups [][]int
	for seed := range xs {
		if used[seed] {
			continue
		}
		used[seed] = true
		group := []int{seed}
		for k := 0; k < len(group); k++ {
			i := group[k]
			group = append(group, NeighbourIndices(xs[i], ys[i], xs, ys, used)...)
		}
		groups = append(groups, group)
	}
	return groups
}
