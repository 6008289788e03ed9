package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/chemopt/internal/config"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/storage"
)

// Runner solves one configuration. *optimal.Pipeline satisfies it.
type Runner interface {
	Solve(ctx context.Context, run optimal.Run, warm *optimal.Result) (*optimal.Result, error)
}

// Progress is reported once per finished job.
type Progress struct {
	Done    int
	Total   int
	Name    string
	Summary storage.Summary
}

type Orchestrator struct {
	Runner  Runner
	Store   *storage.Store
	Workers int
	Logger  *slog.Logger
	// OnProgress is called from worker goroutines, one call at a time.
	OnProgress func(Progress)
}

func New(runner Runner, store *storage.Store, workers int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Runner: runner, Store: store, Workers: workers, Logger: logger}
}

// Run expands the sweep and solves every entry. An invalid sweep halts
// before any run starts; a failing entry is recorded with an error status
// and the batch continues. The returned summaries are in job order.
func (o *Orchestrator) Run(ctx context.Context, sw *config.Sweep) ([]storage.Summary, error) {
	jobs, err := Expand(sw)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	if err := o.Store.Init(); err != nil {
		return nil, err
	}

	workers := o.Workers
	if workers <= 0 {
		workers = sw.Workers
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	o.Logger.Info("sweep started", "runs", len(jobs), "workers", workers, "output", o.Store.Dir())

	summaries := make([]storage.Summary, len(jobs))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := o.runJob(gctx, job)
			if err != nil {
				return err
			}
			summaries[i] = *sum

			mu.Lock()
			done++
			if o.OnProgress != nil {
				o.OnProgress(Progress{Done: done, Total: len(jobs), Name: job.Name(), Summary: *sum})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summaries, err
	}
	o.Logger.Info("sweep finished", "runs", len(jobs))
	return summaries, nil
}

// runJob returns an error only for storage failures and cancellation.
func (o *Orchestrator) runJob(ctx context.Context, job Job) (*storage.Summary, error) {
	name := job.Name()
	log := o.Logger.With("run", name)

	run, err := job.Config.Run(name)
	if err != nil {
		log.Warn("invalid run configuration", "err", err)
		return o.Store.SaveFailure(name, &job.Key, job.Config.Species, err)
	}
	res, err := o.Runner.Solve(ctx, run, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Warn("run failed", "err", err)
		return o.Store.SaveFailure(name, &job.Key, job.Config.Species, err)
	}
	sum, err := o.Store.SaveResult(name, &job.Key, res)
	if err != nil {
		log.Warn("could not save result", "status", res.Status, "err", err)
		return o.Store.SaveFailure(name, &job.Key, job.Config.Species, err)
	}
	return sum, nil
}
