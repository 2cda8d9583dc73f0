// Package topple implements the Abelian sandpile toppling rule and its
// region-sweep variants. Functions here are pure with respect to tiling
// policy: they operate on whatever grid.Region they are given and report
// whether any cell in it changed. Callers (internal/scheduler) decide
// which variant to use for a given tile.
package topple

import "github.com/grainfall/sandpile/internal/grid"

// threshold is the canonical Abelian sandpile toppling threshold: a cell
// topples once it holds at least this many grains.
const threshold = 4

// topple applies the local rule at (y, x): if grid[y][x] >= 4, let
// q = grid[y][x] / 4, replace the cell with grid[y][x] mod 4, and add q to
// each of the four cardinal neighbors. Reports whether the cell changed.
//
// Integer-divide-by-four rather than single-grain subtraction is
// mathematically equivalent for the Abelian sandpile (topple order does
// not affect the fixed point) and collapses what would otherwise be many
// single-grain topples of a high cell into one pass.
func topple(g *grid.Grid, y, x int) bool {
	v := g.At(y, x)
	if v < threshold {
		return false
	}
	q := v / threshold
	*g.Cell(y, x) = v % threshold
	*g.Cell(y-1, x) += q
	*g.Cell(y+1, x) += q
	*g.Cell(y, x-1) += q
	*g.Cell(y, x+1) += q
	return true
}

// SweepFull runs one pass of the toppling rule over every cell in r,
// returning the OR-reduction of per-cell change flags. r must lie
// strictly inside the interior so no halo cell is toppled; topples on the
// edge of the interior add grains to the halo, which absorbs them.
func SweepFull(g *grid.Grid, r grid.Region) bool {
	changed := false
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			if topple(g, y, x) {
				changed = true
			}
		}
	}
	return changed
}

// SweepDouble runs SweepFull once; if it changed anything, it runs a
// second pass, amortizing per-iteration scheduling overhead for a tile
// that is active almost every iteration. The reported flag is the OR of
// both passes, not just the second: a tile that topples in pass one and
// settles in pass two may still have pushed a grain into an
// already-processed neighbor tile, and that must count as a change.
func SweepDouble(g *grid.Grid, r grid.Region) bool {
	if !SweepFull(g, r) {
		return false
	}
	SweepFull(g, r)
	return true
}

// SweepBorder visits only the outer ring of r (top row, bottom row, left
// column, right column). Used when a tile is internally stable but a
// neighbor toppled into it: only the ring could have received grains
// since the tile's last visit.
func SweepBorder(g *grid.Grid, r grid.Region) bool {
	changed := false
	for x := r.X0; x < r.X1; x++ {
		if topple(g, r.Y0, x) {
			changed = true
		}
		if topple(g, r.Y1-1, x) {
			changed = true
		}
	}
	for y := r.Y0; y < r.Y1; y++ {
		if topple(g, y, r.X0) {
			changed = true
		}
		if topple(g, y, r.X1-1) {
			changed = true
		}
	}
	return changed
}

// SweepBorderThenFull runs SweepBorder first; if it changed anything, it
// escalates to SweepFull over the whole region.
//
// Callers must never use this (or SweepBorder alone) in place of
// SweepFull/SweepDouble when the tile's own stability flag was already
// set: a prior topple can leave a hidden interior cell >= 4 that no
// subsequent neighbor inflow touches, and only a full sweep can find it.
func SweepBorderThenFull(g *grid.Grid, r grid.Region) bool {
	if !SweepBorder(g, r) {
		return false
	}
	SweepFull(g, r)
	return true
}
