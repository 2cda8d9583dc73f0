// Package stability tracks, per tile, whether a tile may still contain an
// unstable cell. A zero flag means the tile needs no work unless a
// neighbor topples into it; a non-zero flag means the tile must be
// revisited on the next sweep.
//
// The flag is stored as an integer rather than a bool because the
// stability-tracking policies (spec §4.4) reduce per-iteration change by
// summing tile flags rather than OR-ing them.
package stability

// Map holds one flag per tile, in tile-row-major order, matching the
// teacher's tile-coordinate-keyed cache layout (internal/cog/tilecache.go)
// adapted from an LRU cache to a flat flag array.
type Map struct {
	cols, rows int
	flags      []int32
}

// New allocates a Map for a cols x rows tile grid with every tile marked
// unstable, per spec §3's stability-map initial value.
func New(cols, rows int) *Map {
	m := &Map{cols: cols, rows: rows, flags: make([]int32, cols*rows)}
	for i := range m.flags {
		m.flags[i] = 1
	}
	return m
}

func (m *Map) index(i, j int) int { return i*m.cols + j }

// Get returns the flag for tile (i, j).
func (m *Map) Get(i, j int) int32 {
	return m.flags[m.index(i, j)]
}

// Set stores the flag for tile (i, j).
func (m *Map) Set(i, j int, v int32) {
	m.flags[m.index(i, j)] = v
}

// Dims returns the tile grid's column and row counts.
func (m *Map) Dims() (cols, rows int) { return m.cols, m.rows }

// NeighborUnstable implements criterion (b) of the neighbor-activation
// rule (spec §4.3): true if any of tile (i, j)'s four cardinal neighbor
// tiles had a non-zero flag at the end of the previous iteration.
// Neighbors that fall outside the tile grid are treated as stable (there
// is nothing there to propagate from).
func (m *Map) NeighborUnstable(i, j int) bool {
	if i > 0 && m.Get(i-1, j) != 0 {
		return true
	}
	if i < m.rows-1 && m.Get(i+1, j) != 0 {
		return true
	}
	if j > 0 && m.Get(i, j-1) != 0 {
		return true
	}
	if j < m.cols-1 && m.Get(i, j+1) != 0 {
		return true
	}
	return false
}

// Release drops the map's backing storage.
func (m *Map) Release() {
	m.flags = nil
}
