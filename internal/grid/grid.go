// Package grid owns the grain field and its tile geometry.
//
// A Grid is a square field of side D, row-major in memory. A one-cell
// border (row 0, row D-1, column 0, column D-1) is a permanent sink: it is
// never toppled, and writes into it simply accumulate. The interior,
// [1, D-2] x [1, D-2], is partitioned into Tw x Th tiles; tiles touching
// the domain edge have their effective work region shrunk by one cell so
// no halo cell is ever toppled.
package grid

import (
	"errors"
	"fmt"
)

// Sentinel configuration errors, surfaced unwrapped or wrapped with
// fmt.Errorf("...: %w", err) by callers.
var (
	// ErrInvalidDimension indicates D is too small to have a non-empty interior.
	ErrInvalidDimension = errors.New("grid: D must be greater than 2")
	// ErrInvalidTile indicates Tw or Th does not evenly divide D, or leaves
	// fewer than two tiles per axis.
	ErrInvalidTile = errors.New("grid: tile dimensions must divide D and leave at least two tiles per axis")
)

// Region is a rectangular cell range, end-exclusive: rows [Y0, Y1), columns [X0, X1).
type Region struct {
	Y0, X0 int
	Y1, X1 int
}

// Height reports the number of rows spanned by r.
func (r Region) Height() int { return r.Y1 - r.Y0 }

// Width reports the number of columns spanned by r.
func (r Region) Width() int { return r.X1 - r.X0 }

// Grid is a square grain field plus its tile geometry. It knows nothing
// about toppling; it is a typed view over one contiguous row-major array.
type Grid struct {
	d      int
	tw, th int
	cells  []uint32
}

// New allocates a Grid of side d with tile dimensions tw x th, per spec
// preconditions: d > 2, tw and th divide d, d/tw >= 2, d/th >= 2. With a
// tile width or height of 1, the border tiles' work regions are empty.
func New(d, tw, th int) (*Grid, error) {
	if d <= 2 {
		return nil, ErrInvalidDimension
	}
	if tw <= 0 || th <= 0 || d%tw != 0 || d%th != 0 || d/tw < 2 || d/th < 2 {
		return nil, fmt.Errorf("%w: D=%d Tw=%d Th=%d", ErrInvalidTile, d, tw, th)
	}
	return &Grid{
		d:     d,
		tw:    tw,
		th:    th,
		cells: make([]uint32, d*d),
	}, nil
}

// D returns the grid's side length.
func (g *Grid) D() int { return g.d }

// TileDims returns the configured tile width and height.
func (g *Grid) TileDims() (tw, th int) { return g.tw, g.th }

// TileGridDims returns the number of tile columns and rows covering the interior.
func (g *Grid) TileGridDims() (cols, rows int) { return g.d / g.tw, g.d / g.th }

// index maps (y, x) to its offset in the row-major cells slice.
func (g *Grid) index(y, x int) int { return y*g.d + x }

// Cell returns a mutable reference to the cell at (y, x). The caller is
// responsible for 0 <= y, x < D; Cell performs no bounds check on the hot
// path, matching the spec's "caller responsible for bounds" contract.
func (g *Grid) Cell(y, x int) *uint32 {
	return &g.cells[g.index(y, x)]
}

// At returns the grain count at (y, x) without requiring a pointer.
func (g *Grid) At(y, x int) uint32 {
	return g.cells[g.index(y, x)]
}

// Interior returns the region of cells eligible for toppling: [1, D-2] x [1, D-2].
func (g *Grid) Interior() Region {
	return Region{Y0: 1, X0: 1, Y1: g.d - 1, X1: g.d - 1}
}

// TileRegion returns the effective work region of tile (i, j) — already
// shrunk by one cell on any edge that touches the halo border, so callers
// never need to special-case edge tiles.
func (g *Grid) TileRegion(i, j int) Region {
	y0, x0 := i*g.th, j*g.tw
	y1, x1 := y0+g.th, x0+g.tw
	if y0 == 0 {
		y0 = 1
	}
	if x0 == 0 {
		x0 = 1
	}
	if y1 == g.d {
		y1--
	}
	if x1 == g.d {
		x1--
	}
	return Region{Y0: y0, X0: x0, Y1: y1, X1: x1}
}

// IsEdgeTile reports whether tile (i, j) touches the domain's halo border.
func (g *Grid) IsEdgeTile(i, j int) bool {
	cols, rows := g.TileGridDims()
	return i == 0 || j == 0 || i == rows-1 || j == cols-1
}

// Sum returns the total grain count across every cell, including the halo
// sink — useful for asserting the conservation invariant (P1) in tests.
func (g *Grid) Sum() uint64 {
	var total uint64
	for _, v := range g.cells {
		total += uint64(v)
	}
	return total
}

// InteriorSum returns the total grain count restricted to the interior,
// excluding the halo sink.
func (g *Grid) InteriorSum() uint64 {
	var total uint64
	in := g.Interior()
	for y := in.Y0; y < in.Y1; y++ {
		base := g.index(y, 0)
		row := g.cells[base+in.X0 : base+in.X1]
		for _, v := range row {
			total += uint64(v)
		}
	}
	return total
}

// Release drops the grid's backing storage. After Release the Grid must
// not be used again.
func (g *Grid) Release() {
	g.cells = nil
}
