// Command sandpile runs the Abelian sandpile simulation to convergence
// (or a fixed iteration cap) and writes a rendered snapshot to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/grainfall/sandpile/internal/encode"
	"github.com/grainfall/sandpile/internal/engine"
	"github.com/grainfall/sandpile/internal/scheduler"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		dim         int
		tileWidth   int
		tileHeight  int
		policyName  string
		parallel    bool
		orderName   string
		iterations  int
		presetName  string
		seed        int64
		output      string
		format      string
		quality     int
		verbose     bool
		cpuProfile  string
		memProfile  string
		showVersion bool
	)

	flag.IntVar(&dim, "dim", 256, "Grid side length D (interior is D-2 square)")
	flag.IntVar(&tileWidth, "tile-width", 16, "Tile width Tw; must divide dim")
	flag.IntVar(&tileHeight, "tile-height", 16, "Tile height Th; must divide dim")
	flag.StringVar(&policyName, "policy", "tiled_double_stable", "Scheduling policy: seq, tiled, tiled_double, tiled_stable, tiled_double_stable")
	flag.BoolVar(&parallel, "parallel", true, "Use the four-color parallel tile sweep")
	flag.StringVar(&orderName, "order", "raster", "Tile visiting order: raster, hilbert")
	flag.IntVar(&iterations, "iterations", 100000, "Maximum iterations before giving up on convergence")
	flag.StringVar(&presetName, "preset", "all_fours", "Initial configuration: all_fours, dim_grid, random_sparse")
	flag.Int64Var(&seed, "seed", 0, "RNG seed for the random_sparse preset (0 selects a fixed default)")
	flag.StringVar(&output, "output", "sandpile.png", "Snapshot output path")
	flag.StringVar(&format, "format", "png", "Snapshot encoding: png, jpeg, webp")
	flag.IntVar(&quality, "quality", 85, "JPEG/WebP quality 1-100")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sandpile [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Run an Abelian sandpile simulation to convergence and write a snapshot.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("sandpile %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		if verbose {
			log.Printf("CPU profiling enabled → %s", cpuProfile)
		}
	}

	if memProfile != "" {
		defer func() {
			f, err := os.Create(memProfile)
			if err != nil {
				log.Fatalf("Creating memory profile: %v", err)
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("Writing memory profile: %v", err)
			}
			if verbose {
				log.Printf("Memory profile written → %s", memProfile)
			}
		}()
	}

	policy, err := scheduler.ParsePolicy(policyName)
	if err != nil {
		log.Fatalf("Policy: %v", err)
	}
	order, err := scheduler.ParseOrder(orderName)
	if err != nil {
		log.Fatalf("Order: %v", err)
	}
	enc, err := encode.NewEncoder(format, quality)
	if err != nil {
		log.Fatalf("Encoder: %v", err)
	}

	s, err := engine.New(dim, tileWidth, tileHeight)
	if err != nil {
		log.Fatalf("Initializing grid: %v", err)
	}
	defer s.Close()

	s.DrawPreset(presetName, seed)

	if verbose {
		log.Printf("dim=%d tile=%dx%d policy=%s parallel=%v order=%s preset=%s",
			dim, tileWidth, tileHeight, policy, parallel, order, presetName)
	}

	start := time.Now()
	it, err := s.ComputeOrdered(context.Background(), policy, parallel, order, iterations)
	if err != nil {
		log.Fatalf("Compute: %v", err)
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	if it == 0 {
		log.Printf("WARNING: did not converge within %d iterations (%v elapsed)", iterations, elapsed)
	} else if verbose {
		log.Printf("Converged at iteration %d (%v elapsed)", it, elapsed)
	}

	img, err := s.Snapshot(s.NewPalette())
	if err != nil {
		log.Fatalf("Snapshot: %v", err)
	}

	data, err := enc.Encode(img)
	if err != nil {
		log.Fatalf("Encoding snapshot: %v", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		log.Fatalf("Writing output: %v", err)
	}

	fmt.Printf("sandpile %s: %d iteration(s), %s → %s\n", version, it, policyName, output)
}
