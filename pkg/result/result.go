// Package result persists accepted fiducial vectors and run summaries.
//
// Two sinks are provided: FileStore writes the plain-text layout under an
// output directory, and Catalog keeps a queryable BadgerDB index of every
// accepted vector. MultiSink fans one result out to several sinks.
package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/minimizer"
)

var (
	ErrCatalogClosed = errors.New("result: catalog closed")
	ErrNotFound      = errors.New("result: not found")
	ErrCorrupt       = errors.New("result: fingerprint mismatch")
)

// Result is an accepted fiducial with its provenance.
type Result struct {
	RunID      string
	Dimension  int
	Seed       uint64
	Index      int
	Loss       float64
	Steps      int
	Vector     *vector.Vector
	Trajectory []minimizer.TrajectoryPoint
	CreatedAt  time.Time
}

// Summary is the per-dimension run report.
type Summary struct {
	Dimension      int
	InitialSeed    uint64
	SeedBudget     int
	SeedsAttempted int
	Found          bool
	SeedUsed       uint64
	Workers        int
	Duration       time.Duration
}

// Sink receives accepted results. Calls are sequential.
type Sink interface {
	Save(ctx context.Context, r *Result) error
}

// MultiSink saves to each sink in order and stops at the first error.
type MultiSink []Sink

// Save implements Sink.
func (m MultiSink) Save(ctx context.Context, r *Result) error {
	for _, s := range m {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ZeroPad3 renders n with at least three digits. n must be in [0, 999].
func ZeroPad3(n int) string {
	if n < 0 || n > 999 {
		panic(fmt.Sprintf("result: %d does not fit in three digits", n))
	}
	return fmt.Sprintf("%03d", n)
}
