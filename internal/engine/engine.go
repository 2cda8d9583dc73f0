// Package engine exposes the sandpile core's external interface: init,
// draw-preset, compute, snapshot, finalize. State is the "single
// process-wide state block" of the core's design notes, realized as an
// explicit struct owned by the caller rather than a package variable.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/grainfall/sandpile/internal/convergence"
	"github.com/grainfall/sandpile/internal/grid"
	"github.com/grainfall/sandpile/internal/palette"
	"github.com/grainfall/sandpile/internal/preset"
	"github.com/grainfall/sandpile/internal/scheduler"
	"github.com/grainfall/sandpile/internal/stability"
)

// ErrNotInitialized is returned by Compute, ComputeOrdered and Snapshot on
// a State after Close; DrawPreset does nothing after Close.
var ErrNotInitialized = errors.New("engine: state is not initialized")

// State binds a grid, its stability map, and the scheduling and
// convergence machinery that operate on them. It is not safe for
// concurrent use by multiple goroutines; Compute's internal parallelism
// is private to one call.
type State struct {
	grid      *grid.Grid
	stab      *stability.Map
	maxGrains uint32
	closed    bool
}

// New allocates a D x D grid tiled Tw x Th and its stability map, both
// initially marked unstable (spec's "init" operation: allocate grid and
// stability table; seed every tile's flag to unstable").
func New(d, tw, th int) (*State, error) {
	g, err := grid.New(d, tw, th)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	cols, rows := g.TileGridDims()
	return &State{
		grid:      g,
		stab:      stability.New(cols, rows),
		maxGrains: 1,
	}, nil
}

// Close releases the grid's backing storage. The State must not be used
// again afterward.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.grid.Release()
	s.stab.Release()
	s.closed = true
}

// DrawPreset populates the grid with a named initial configuration and
// records the preset's max_grains as the palette's initial gradient
// scale. An unrecognized name falls back to the default preset silently,
// per spec — the one operation where the core does not surface a
// configuration error.
func (s *State) DrawPreset(name string, seed int64) {
	if s.closed {
		return
	}
	parsed, err := preset.ParseName(name)
	if err != nil {
		parsed = preset.AllFours
	}
	s.maxGrains = preset.Draw(s.grid, parsed, seed)
}

// Compute runs the scheduler for up to n iterations under policy p,
// returning the iteration at which the grid reached a fixed point, or 0
// if it had not within n iterations. Calls are cumulative: the grid and
// stability map carry over from the previous Compute call.
func (s *State) Compute(ctx context.Context, p scheduler.Policy, parallel bool, n int) (int, error) {
	return s.ComputeOrdered(ctx, p, parallel, scheduler.RowMajor, n)
}

// ComputeOrdered is Compute with an explicit tile visiting order, used by
// the CLI's -order flag; Compute itself always uses RowMajor.
func (s *State) ComputeOrdered(ctx context.Context, p scheduler.Policy, parallel bool, order scheduler.Order, n int) (int, error) {
	if s.closed {
		return 0, ErrNotInitialized
	}
	sched := scheduler.New(s.grid, s.stab, p, parallel, order)
	driver := convergence.New(sched)
	it, err := driver.Run(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("engine: compute: %w", err)
	}
	return it, nil
}

// Snapshot renders the current grid through pal, returning an RGBA image.
// It is only valid to call between Compute calls — the core guarantees
// the grid is quiescent during the call by virtue of the caller's
// single-threaded use of State, not by any internal locking.
func (s *State) Snapshot(pal palette.Palette) (*image.RGBA, error) {
	if s.closed {
		return nil, ErrNotInitialized
	}
	img := pal.Render(s.grid)
	s.maxGrains = pal.MaxGrains
	return img, nil
}

// NewPalette returns a Palette seeded with the max_grains established by
// the most recent DrawPreset or Snapshot (or 1, if neither has run yet).
func (s *State) NewPalette() palette.Palette {
	return *palette.New(s.maxGrains)
}
