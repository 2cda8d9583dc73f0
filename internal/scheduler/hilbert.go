package scheduler

import "sort"

// xyToHilbert converts (x, y) to a Hilbert curve index for an n x n grid.
// n must be a power of two.
func xyToHilbert(x, y, n uint64) uint64 {
	var d uint64
	s := n / 2
	for s > 0 {
		var rx, ry uint64
		if (x & s) > 0 {
			rx = 1
		}
		if (y & s) > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		// Rotate quadrant.
		if ry == 0 {
			if rx == 1 {
				x = s*2 - 1 - x
				y = s*2 - 1 - y
			}
			x, y = y, x
		}
		s /= 2
	}
	return d
}

// sortTileCoordsByHilbert sorts tile coordinates by their Hilbert curve
// index, preserving 2D spatial locality: tiles close on the Hilbert curve
// are close in the tile grid, which improves cache hit rates when a color
// class's tiles are processed from a shared slice. n is the smallest
// power of two at least as large as the tile grid's larger dimension.
func sortTileCoordsByHilbert(coords []tileCoord, n uint64) {
	if len(coords) <= 1 {
		return
	}
	indices := make([]uint64, len(coords))
	for k, c := range coords {
		indices[k] = xyToHilbert(uint64(c.j), uint64(c.i), n)
	}
	sort.Sort(hilbertSorter{coords: coords, indices: indices})
}

type hilbertSorter struct {
	coords  []tileCoord
	indices []uint64
}

func (s hilbertSorter) Len() int           { return len(s.coords) }
func (s hilbertSorter) Less(i, j int) bool { return s.indices[i] < s.indices[j] }
func (s hilbertSorter) Swap(i, j int) {
	s.coords[i], s.coords[j] = s.coords[j], s.coords[i]
	s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
}

// nextPow2 returns the smallest power of two >= v (v >= 1).
func nextPow2(v int) uint64 {
	n := uint64(1)
	for n < uint64(v) {
		n <<= 1
	}
	return n
}
