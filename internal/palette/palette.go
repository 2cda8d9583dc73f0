// Package palette maps grain counts to RGBA colors for sandpile snapshots.
// This is a visualization boundary, not part of the toppling core: the
// core's stability and conservation invariants hold regardless of what
// a Palette renders.
package palette

import (
	"image"

	"github.com/grainfall/sandpile/internal/grid"
)

// Palette renders grid snapshots and tracks the running maximum grain
// count observed, which scales the gradient for values above 4 — the
// same max_grains side effect the teacher's sable_refresh_img performs
// on every call (original_source/kernel/c/sable.c).
type Palette struct {
	MaxGrains uint32
}

// New returns a Palette seeded with the initial max_grains a preset
// established (see internal/preset). A zero seed is treated as 1 to
// avoid a divide-by-zero in the gradient before the first real reading.
func New(seedMaxGrains uint32) *Palette {
	if seedMaxGrains == 0 {
		seedMaxGrains = 1
	}
	return &Palette{MaxGrains: seedMaxGrains}
}

// Render paints g's interior into a pooled RGBA image, one pixel per
// cell, and updates p.MaxGrains to the largest grain count observed.
// Cells are colored with the MaxGrains in effect when Render starts; the
// updated value scales the next call. Halo pixels are left zeroed
// (transparent black), unlike the opaque black of a grain-count-0 cell.
// The returned image's bounds match g.D() x g.D(); callers done with it
// should return it to the pool via Release.
func (p *Palette) Render(g *grid.Grid) *image.RGBA {
	d := g.D()
	img := GetRGBA(d, d)

	var max uint32
	in := g.Interior()
	for y := in.Y0; y < in.Y1; y++ {
		for x := in.X0; x < in.X1; x++ {
			v := g.At(y, x)
			if v > max {
				max = v
			}
			r, gr, b := colorFor(v, p.MaxGrains)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = r
			img.Pix[off+1] = gr
			img.Pix[off+2] = b
			img.Pix[off+3] = 0xFF
		}
	}
	if max > 0 {
		p.MaxGrains = max
	}
	return img
}

// Release returns img to the RGBA pool for reuse by a later Render call.
func Release(img *image.RGBA) {
	PutRGBA(img)
}

// colorFor implements the palette contract: 0 -> black, 1 -> green,
// 2 -> blue, 3 -> red, 4 -> white, >4 -> gradient from magenta toward
// black scaled by maxGrains. Matches sable_refresh_img's RGB assignment.
func colorFor(g, maxGrains uint32) (r, gr, b uint8) {
	switch {
	case g == 0:
		return 0, 0, 0
	case g == 1:
		return 0, 255, 0
	case g == 2:
		return 0, 0, 255
	case g == 3:
		return 255, 0, 0
	case g == 4:
		return 255, 255, 255
	default:
		scale := 255 - int(240*float64(g)/float64(maxGrains))
		if scale < 0 {
			scale = 0
		}
		return uint8(scale), 0, uint8(scale)
	}
}
