package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"blockexpr/pkg/config"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/expression"

	"fortio.org/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultRadius = 8

// SampleResult counts the positions of a cube where a formula held.
type SampleResult struct {
	Positions int64
	Matched   int64
	// Runaway counts positions stopped by the timeout or iteration limit.
	Runaway int64
}

// sample evaluates expr with parameters x, y, z at every integer position
// of [-radius, radius]^3. Each x slab is one task; at most workers run at
// once, each on its own copy of the expression. Runaway evaluations are
// counted and warned about at most once a second. Any other failure stops
// the whole run.
func sample(ctx context.Context, expr *expression.Expression, radius, workers int) (SampleResult, error) {
	var res SampleResult
	pool := expression.NewPool(expr)
	warn := rate.NewLimiter(rate.Every(time.Second), 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for x := -radius; x <= radius; x++ {
		g.Go(func() error {
			e := pool.Get()
			defer pool.Put(e)
			for y := -radius; y <= radius; y++ {
				for z := -radius; z <= radius; z++ {
					atomic.AddInt64(&res.Positions, 1)
					v, err := e.EvaluateContext(ctx, float64(x), float64(y), float64(z))
					switch {
					case errors.Is(err, exprerr.ErrRunaway):
						atomic.AddInt64(&res.Runaway, 1)
						if warn.Allow() {
							log.Warnf("runaway formula at %d,%d,%d: %v", x, y, z, err)
						}
					case err != nil:
						return fmt.Errorf("at %d,%d,%d: %w", x, y, z, err)
					case v != 0:
						atomic.AddInt64(&res.Matched, 1)
					}
				}
			}
			return nil
		})
	}
	err := g.Wait()
	return res, err
}

func sampleCode(cfg *config.Config, source string, args []string, out io.Writer) int {
	radius := defaultRadius
	if len(args) > 0 {
		r, err := strconv.Atoi(args[0])
		if err != nil || r < 0 {
			log.Errf("radius must be a non-negative integer, got %q", args[0])
			return 1
		}
		radius = r
	}

	expr, err := cfg.Compiler().Compile(source, "x", "y", "z")
	if err != nil {
		printError(out, source, err)
		return 1
	}

	start := time.Now()
	res, err := sample(context.Background(), expr, radius, cfg.Workers)
	if err != nil {
		printError(out, source, err)
		return 1
	}
	log.Infof("sampled %d positions with %d workers in %v", res.Positions, cfg.Workers, time.Since(start))
	fmt.Fprintf(out, "%d of %d positions matched\n", res.Matched, res.Positions)
	if res.Runaway > 0 {
		fmt.Fprintf(out, "%d positions ran away\n", res.Runaway)
	}
	return 0
}
