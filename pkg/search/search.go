// Package search drives the multi-seed, multi-worker fiducial search.
//
// For each seed the stratified sampler is reseeded and its candidates are
// minimized by a fixed pool of workers. The sweep stops at the first seed that
// yields an accepted candidate or when the seed budget runs out.
//
// Two check cadences give the same outcome and differ only in wasted work:
//
//   - CadenceBatched: candidates are dispatched in batches of Workers; after
//     each batch the coordinator inspects every worker's slot and skips the
//     remaining batches once something was accepted.
//   - CadenceDrain: all candidates are shared out dynamically and the slots are
//     inspected once, after every worker has finished.
//
// A candidate in flight always runs to completion. Accepted results are
// persisted by the coordinator, one at a time, after the workers have joined.
package search

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/orneryd/sicsearch/pkg/logging"
	"github.com/orneryd/sicsearch/pkg/minimizer"
	"github.com/orneryd/sicsearch/pkg/povm"
	"github.com/orneryd/sicsearch/pkg/result"
	"github.com/orneryd/sicsearch/pkg/sampler"
)

// Cadence selects when workers are checked for success.
type Cadence int

const (
	CadenceBatched Cadence = iota
	CadenceDrain
)

func (c Cadence) String() string {
	switch c {
	case CadenceBatched:
		return "batched"
	case CadenceDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// ParseCadence accepts "batched" or "drain".
func ParseCadence(s string) (Cadence, error) {
	switch s {
	case "batched":
		return CadenceBatched, nil
	case "drain":
		return CadenceDrain, nil
	default:
		return 0, fmt.Errorf("unknown cadence %q", s)
	}
}

// CadenceFor picks batched below threshold and drain at or above it.
// Larger dimensions make each candidate expensive enough that per-batch
// barriers only add idle time.
func CadenceFor(dim, threshold int) Cadence {
	if dim < threshold {
		return CadenceBatched
	}
	return CadenceDrain
}

// Options configures a Searcher. Sink, Logger and Metrics may be nil.
type Options struct {
	Dimension   int
	InitialSeed uint64
	SeedBudget  int
	Workers     int
	Cadence     Cadence
	Minimizer   minimizer.Options

	// VerifyPOVM checks every accepted vector's orbit overlaps and logs the outcome.
	VerifyPOVM    bool
	POVMTolerance float64

	// ProgressInterval bounds how often per-seed progress is logged.
	// Zero means DefaultProgressInterval.
	ProgressInterval time.Duration

	Sink    result.Sink
	Logger  *logging.Logger
	Metrics MetricsCollector
}

// DefaultProgressInterval is the progress log interval used when none is set.
const DefaultProgressInterval = 10 * time.Second

// Report is the outcome of a whole search.
type Report struct {
	RunID          string
	Dimension      int
	InitialSeed    uint64
	SeedBudget     int
	SeedsAttempted int
	Found          bool
	SeedUsed       uint64
	// Result is the lowest-index accepted candidate of SeedUsed.
	Result *result.Result
	// Accepted counts every accepted candidate persisted for SeedUsed.
	Accepted int
	Workers  int
	Cadence  Cadence
	Duration time.Duration
}

// Summary converts the report into the persisted run summary.
func (r *Report) Summary() result.Summary {
	return result.Summary{
		Dimension:      r.Dimension,
		InitialSeed:    r.InitialSeed,
		SeedBudget:     r.SeedBudget,
		SeedsAttempted: r.SeedsAttempted,
		Found:          r.Found,
		SeedUsed:       r.SeedUsed,
		Workers:        r.Workers,
		Duration:       r.Duration,
	}
}

// Searcher runs the seed loop. It is not safe to call Run concurrently on one Searcher.
type Searcher struct {
	opts    Options
	log     *logging.Logger
	metrics MetricsCollector
}

// New validates opts and returns a Searcher.
func New(opts Options) (*Searcher, error) {
	if opts.Dimension < 2 {
		return nil, fmt.Errorf("dimension must be at least 2, got %d", opts.Dimension)
	}
	if opts.SeedBudget < 1 {
		return nil, fmt.Errorf("seed budget must be positive, got %d", opts.SeedBudget)
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", opts.Workers)
	}
	if opts.Cadence != CadenceBatched && opts.Cadence != CadenceDrain {
		return nil, fmt.Errorf("unknown cadence %d", opts.Cadence)
	}
	if opts.POVMTolerance <= 0 {
		opts.POVMTolerance = povm.DefaultTolerance
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}

	s := &Searcher{opts: opts, log: opts.Logger, metrics: opts.Metrics}
	if s.log == nil {
		s.log = logging.NoopLogger()
	}
	if s.metrics == nil {
		s.metrics = NoopMetricsCollector{}
	}
	return s, nil
}

// Run searches seeds InitialSeed, InitialSeed+1, ... until a candidate is
// accepted or SeedBudget seeds were tried. Not finding a fiducial is not an
// error. ctx is observed between seeds and between batches; cancellation
// returns the partial report together with ctx.Err(). A persistence failure
// aborts the run.
func (s *Searcher) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{
		RunID:       uuid.NewString(),
		Dimension:   s.opts.Dimension,
		InitialSeed: s.opts.InitialSeed,
		SeedBudget:  s.opts.SeedBudget,
		Workers:     s.opts.Workers,
		Cadence:     s.opts.Cadence,
	}
	log := s.log.WithRunID(rep.RunID).WithDimension(rep.Dimension)
	log.InfoContext(ctx, "search started",
		"initial_seed", rep.InitialSeed,
		"seed_budget", rep.SeedBudget,
		"workers", rep.Workers,
		"cadence", rep.Cadence.String(),
	)

	err := s.run(ctx, log, rep)
	rep.Duration = time.Since(start)
	log.LogRun(ctx, rep.Found, rep.SeedsAttempted, rep.Duration, err)
	return rep, err
}

func (s *Searcher) run(ctx context.Context, log *logging.Logger, rep *Report) error {
	samp := sampler.New(s.opts.Dimension)
	for i := 0; i < s.opts.SeedBudget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		seed := s.opts.InitialSeed + uint64(i)
		samp.Reseed(seed)
		seedLog := log.WithSeed(seed)

		seedStart := time.Now()
		accepted, err := s.searchSeed(ctx, seedLog, samp, rep.RunID)
		rep.SeedsAttempted++
		if err != nil {
			return err
		}

		found := len(accepted) > 0
		elapsed := time.Since(seedStart)
		s.metrics.RecordSeed(seed, found, elapsed)
		seedLog.LogSeed(ctx, seed, found, elapsed)
		if !found {
			continue
		}

		if err := s.persist(ctx, seedLog, accepted); err != nil {
			return err
		}
		rep.Found = true
		rep.SeedUsed = seed
		rep.Result = accepted[0]
		rep.Accepted = len(accepted)
		return nil
	}
	return nil
}

// seedRun is the state shared by the workers of one seed.
type seedRun struct {
	log      *logging.Logger
	samp     *sampler.Sampler
	runID    string
	done     atomic.Int64
	progress rate.Sometimes
}

// searchSeed minimizes the seed's candidates and returns the accepted ones
// ordered by index.
func (s *Searcher) searchSeed(ctx context.Context, log *logging.Logger, samp *sampler.Sampler, runID string) ([]*result.Result, error) {
	sr := &seedRun{
		log:      log,
		samp:     samp,
		runID:    runID,
		progress: rate.Sometimes{Interval: s.opts.ProgressInterval},
	}
	// one slot per worker, written only by its owner
	slots := make([][]*result.Result, s.opts.Workers)

	switch s.opts.Cadence {
	case CadenceDrain:
		if err := s.drain(ctx, sr, slots); err != nil {
			return nil, err
		}
		return collect(slots), nil
	default:
		for batchStart := 0; batchStart < sampler.NumBins; batchStart += s.opts.Workers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := s.batch(ctx, sr, batchStart, slots); err != nil {
				return nil, err
			}
			if accepted := collect(slots); len(accepted) > 0 {
				return accepted, nil
			}
		}
		return nil, nil
	}
}

func (s *Searcher) batch(ctx context.Context, sr *seedRun, batchStart int, slots [][]*result.Result) error {
	var g errgroup.Group
	for w := range slots {
		index := batchStart + w
		if index >= sampler.NumBins {
			break
		}
		g.Go(func() error {
			r, err := s.candidate(ctx, sr, index)
			if r != nil {
				slots[w] = append(slots[w], r)
			}
			return err
		})
	}
	return g.Wait()
}

func (s *Searcher) drain(ctx context.Context, sr *seedRun, slots [][]*result.Result) error {
	var next atomic.Int64
	var g errgroup.Group
	for w := range slots {
		g.Go(func() error {
			for {
				index := int(next.Add(1) - 1)
				if index >= sampler.NumBins {
					return nil
				}
				r, err := s.candidate(ctx, sr, index)
				if err != nil {
					return err
				}
				if r != nil {
					slots[w] = append(slots[w], r)
				}
			}
		})
	}
	return g.Wait()
}

// candidate minimizes one sample. It returns nil when the candidate was not accepted.
func (s *Searcher) candidate(ctx context.Context, sr *seedRun, index int) (*result.Result, error) {
	v, err := sr.samp.Sample(index)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := minimizer.Minimize(v, s.opts.Minimizer)
	s.metrics.RecordCandidate(res.Status, res.Steps, time.Since(start))
	sr.log.LogCandidate(ctx, index, res.Status.String(), res.Steps, res.Loss, res.Accepted)

	done := sr.done.Add(1)
	sr.progress.Do(func() {
		sr.log.InfoContext(ctx, "seed progress", "completed", done, "total", sampler.NumBins)
	})

	if !res.Accepted {
		if res.Status == minimizer.Converged {
			sr.log.WarnContext(ctx, "converged candidate failed acceptance check",
				"candidate", index,
				"loss", res.Loss,
			)
		}
		return nil, nil
	}
	return &result.Result{
		RunID:      sr.runID,
		Dimension:  s.opts.Dimension,
		Seed:       sr.samp.Seed(),
		Index:      index,
		Loss:       res.Loss,
		Steps:      res.Steps,
		Vector:     res.Vector,
		Trajectory: res.Trajectory,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// persist hands accepted results to the sink sequentially.
func (s *Searcher) persist(ctx context.Context, log *logging.Logger, accepted []*result.Result) error {
	for _, r := range accepted {
		if s.opts.VerifyPOVM {
			if err := povm.VerifyFiducial(r.Vector, s.opts.POVMTolerance); err != nil {
				log.WarnContext(ctx, "accepted vector failed POVM verification",
					"candidate", r.Index,
					"error", err,
				)
			} else {
				log.DebugContext(ctx, "POVM verified", "candidate", r.Index)
			}
		}

		if s.opts.Sink == nil {
			continue
		}
		target := fmt.Sprintf("%d/%d/%d", r.Dimension, r.Seed, r.Index)
		err := s.opts.Sink.Save(ctx, r)
		log.LogPersist(ctx, target, err)
		if err != nil {
			return fmt.Errorf("failed to persist candidate %d of seed %d: %w", r.Index, r.Seed, err)
		}
	}
	return nil
}

func collect(slots [][]*result.Result) []*result.Result {
	var out []*result.Result
	for _, slot := range slots {
		out = append(out, slot...)
	}
	slices.SortFunc(out, func(a, b *result.Result) int { return a.Index - b.Index })
	return out
}
