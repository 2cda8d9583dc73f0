// Package scheduler iterates tiles under one of five execution policies
// and, in parallel mode, applies a four-color (2x2 block) decomposition so
// concurrently processed tiles never write overlapping footprints.
//
// Tile (I, J) belongs to color class (I&1)*2 + (J&1); within one class,
// any two tiles differ by at least 2 in some coordinate, so their write
// footprints (tile cells plus one-cell neighbor halo) never overlap. The
// four classes are always run in the fixed order 0,1,2,3 with an implicit
// barrier between them, matching spec §4.4 and §5's happens-before
// requirement across color classes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/grainfall/sandpile/internal/grid"
	"github.com/grainfall/sandpile/internal/stability"
	"github.com/grainfall/sandpile/internal/topple"
)

// ErrUnknownPolicy indicates a policy name that does not match one of the
// five supported policies.
var ErrUnknownPolicy = errors.New("scheduler: unknown policy")

// ErrUnknownOrder indicates an order name that is neither raster nor hilbert.
var ErrUnknownOrder = errors.New("scheduler: unknown tile order")

// Policy selects which sweep variant and stability discipline a Scheduler
// applies to each tile. The parallel four-color decomposition is a
// separate dimension (Scheduler.Parallel), not part of Policy, since it
// composes identically with all five values.
type Policy int

const (
	// SEQ runs a single sweep_full over the entire interior per iteration,
	// with no tiling at all.
	SEQ Policy = iota
	// Tiled runs sweep_full on every tile, row-major, with no stability pruning.
	Tiled
	// TiledDouble is Tiled but uses sweep_double.
	TiledDouble
	// TiledStable is Tiled but uses the stability map and the
	// neighbor-activation rule to skip, ring-sweep, or full-sweep each tile.
	TiledStable
	// TiledDoubleStable composes TiledDouble and TiledStable.
	TiledDoubleStable
)

// String returns the policy's CLI/display name.
func (p Policy) String() string {
	switch p {
	case SEQ:
		return "seq"
	case Tiled:
		return "tiled"
	case TiledDouble:
		return "tiled_double"
	case TiledStable:
		return "tiled_stable"
	case TiledDoubleStable:
		return "tiled_double_stable"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a CLI policy name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "seq":
		return SEQ, nil
	case "tiled":
		return Tiled, nil
	case "tiled_double":
		return TiledDouble, nil
	case "tiled_stable":
		return TiledStable, nil
	case "tiled_double_stable":
		return TiledDoubleStable, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Order selects the deterministic order in which tiles within one color
// class are visited on the parallel path. Spec §4.4 permits any
// deterministic order within a class; the non-parallel tiled path always
// visits the whole tile grid in RowMajor order, whatever the Order.
type Order int

const (
	// RowMajor visits tiles in increasing (I, J) order.
	RowMajor Order = iota
	// Hilbert visits tiles along a Hilbert space-filling curve, improving
	// cache locality for large tile grids at the cost of losing row-major order.
	Hilbert
)

// String returns the order's CLI/display name.
func (o Order) String() string {
	switch o {
	case RowMajor:
		return "raster"
	case Hilbert:
		return "hilbert"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder converts a CLI order name to an Order.
func ParseOrder(name string) (Order, error) {
	switch name {
	case "raster", "":
		return RowMajor, nil
	case "hilbert":
		return Hilbert, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOrder, name)
	}
}

type tileCoord struct{ i, j int }

// Scheduler iterates a Grid's tiles under a fixed Policy. It is not safe
// for concurrent RunIteration calls; concurrency is entirely internal to one
// RunIteration call.
type Scheduler struct {
	Policy   Policy
	Parallel bool
	Order    Order

	g       *grid.Grid
	stab    *stability.Map
	classes [4][]tileCoord // four-color decomposition, used only when Parallel
	flat    []tileCoord    // whole tile grid in visiting order, used when !Parallel
}

// New builds a Scheduler over g, precomputing the four-color tile classes
// (for the parallel path, in the requested Order) and a flat row-major
// visiting order (for the sequential path) up front. stab may be nil for
// policies that do not consult the stability map (SEQ, Tiled, TiledDouble).
func New(g *grid.Grid, stab *stability.Map, policy Policy, parallel bool, order Order) *Scheduler {
	s := &Scheduler{Policy: policy, Parallel: parallel, Order: order, g: g, stab: stab}
	cols, rows := g.TileGridDims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c := (i&1)<<1 | (j & 1)
			s.classes[c] = append(s.classes[c], tileCoord{i, j})
			s.flat = append(s.flat, tileCoord{i, j})
		}
	}
	if order == Hilbert {
		n := nextPow2(max(cols, rows))
		for c := range s.classes {
			sortTileCoordsByHilbert(s.classes[c], n)
		}
	}
	return s
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// RunIteration sweeps every tile once under the Scheduler's policy and
// returns the per-iteration change reduction: an OR (0 or 1) for SEQ,
// Tiled, and TiledDouble, or a SUM of tile flags for TiledStable and
// TiledDoubleStable (spec §4.4's change-reduction rule).
func (s *Scheduler) RunIteration(ctx context.Context) (int, error) {
	switch s.Policy {
	case SEQ:
		if topple.SweepFull(s.g, s.g.Interior()) {
			return 1, nil
		}
		return 0, nil
	case Tiled:
		return s.runUntracked(ctx, topple.SweepFull)
	case TiledDouble:
		return s.runUntracked(ctx, topple.SweepDouble)
	case TiledStable:
		return s.runStable(ctx, false)
	case TiledDoubleStable:
		return s.runStable(ctx, true)
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownPolicy, s.Policy)
	}
}

// runUntracked sweeps every tile with the given variant, OR-reducing the
// per-tile change flags. The sequential path visits the flat row-major
// order; the parallel path runs the four color classes in turn.
func (s *Scheduler) runUntracked(ctx context.Context, sweep func(*grid.Grid, grid.Region) bool) (int, error) {
	changed := false
	if !s.Parallel {
		for _, c := range s.flat {
			if sweep(s.g, s.g.TileRegion(c.i, c.j)) {
				changed = true
			}
		}
		return boolToInt(changed), nil
	}

	for _, class := range s.classes {
		var any atomic.Bool
		eg, _ := errgroup.WithContext(ctx)
		eg.SetLimit(runtime.GOMAXPROCS(0))
		for _, c := range class {
			c := c
			eg.Go(func() error {
				if sweep(s.g, s.g.TileRegion(c.i, c.j)) {
					any.Store(true)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return 0, err
		}
		if any.Load() {
			changed = true
		}
	}
	return boolToInt(changed), nil
}

// runStable implements the stability-tracking policies (TiledStable,
// TiledDoubleStable), applying the neighbor-activation rule of spec §4.3
// per tile and summing the resulting flags.
func (s *Scheduler) runStable(ctx context.Context, double bool) (int, error) {
	var total int64
	if !s.Parallel {
		for _, c := range s.flat {
			total += int64(s.sweepTileStable(c.i, c.j, double))
		}
		return int(total), nil
	}

	for _, class := range s.classes {
		var sum atomic.Int64
		eg, _ := errgroup.WithContext(ctx)
		eg.SetLimit(runtime.GOMAXPROCS(0))
		for _, c := range class {
			c := c
			eg.Go(func() error {
				sum.Add(int64(s.sweepTileStable(c.i, c.j, double)))
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return 0, err
		}
		total += sum.Load()
	}
	return int(total), nil
}

// sweepTileStable applies the neighbor-activation rule (spec §4.3) to tile
// (i, j): visit with a full/double sweep if its own flag is set or it sits
// on the tile grid's outer ring (criteria a, c); visit with a
// border/border-then-full sweep if only a neighbor's flag was set
// (criterion b); otherwise skip. It never uses sweep_border in place of
// sweep_full when the tile's own flag was already set (spec §9).
func (s *Scheduler) sweepTileStable(i, j int, double bool) int32 {
	own := s.stab.Get(i, j)
	region := s.g.TileRegion(i, j)

	var changed bool
	switch {
	case own != 0 || s.g.IsEdgeTile(i, j):
		if double {
			changed = topple.SweepDouble(s.g, region)
		} else {
			changed = topple.SweepFull(s.g, region)
		}
	case s.stab.NeighborUnstable(i, j):
		if double {
			changed = topple.SweepBorderThenFull(s.g, region)
		} else {
			changed = topple.SweepBorder(s.g, region)
		}
	default:
		changed = false
	}

	flag := int32(0)
	if changed {
		flag = 1
	}
	s.stab.Set(i, j, flag)
	return flag
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
