// Package convergence runs a scheduler to a fixed point.
package convergence

import (
	"context"

	"github.com/grainfall/sandpile/internal/scheduler"
)

// Driver runs up to N iterations of a scheduler, returning the iteration
// at which the system stabilized, or 0 if it had not by iteration N. It
// never resets the grid or stability map itself; successive calls to Run
// are cumulative, continuing from wherever the last call left off.
type Driver struct {
	Scheduler *scheduler.Scheduler
}

// New builds a Driver over sched.
func New(sched *scheduler.Scheduler) *Driver {
	return &Driver{Scheduler: sched}
}

// Run invokes the scheduler for up to n iterations. It returns the
// iteration index (1-based) at which an iteration committed zero changes,
// or 0 if n iterations elapsed without convergence. A cancelled ctx is
// observed at the next iteration boundary — the spec's one-iteration
// cancellation granularity, since no operation inside the core suspends
// or may be interrupted mid-iteration.
func (d *Driver) Run(ctx context.Context, n int) (int, error) {
	for it := 1; it <= n; it++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		changed, err := d.Scheduler.RunIteration(ctx)
		if err != nil {
			return 0, err
		}
		if changed == 0 {
			return it, nil
		}
	}
	return 0, nil
}
