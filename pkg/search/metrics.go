package search

import (
	"sync/atomic"
	"time"

	"github.com/orneryd/sicsearch/pkg/minimizer"
)

// MetricsCollector receives per-candidate and per-seed measurements.
// Implementations must be safe for concurrent use: RecordCandidate is
// called from worker goroutines.
type MetricsCollector interface {
	// RecordCandidate is called after each candidate descent.
	RecordCandidate(status minimizer.Status, steps int, duration time.Duration)

	// RecordSeed is called after each seed's sweep.
	RecordSeed(seed uint64, found bool, duration time.Duration)
}

// NoopMetricsCollector discards everything.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCandidate(minimizer.Status, int, time.Duration) {}
func (NoopMetricsCollector) RecordSeed(uint64, bool, time.Duration)              {}

// BasicMetricsCollector provides simple in-memory counters.
type BasicMetricsCollector struct {
	Candidates          atomic.Int64
	Converged           atomic.Int64
	Stalled             atomic.Int64
	MaxIterReached      atomic.Int64
	Steps               atomic.Int64
	CandidateTotalNanos atomic.Int64
	Seeds               atomic.Int64
	SeedsFound          atomic.Int64
	SeedTotalNanos      atomic.Int64
}

// RecordCandidate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCandidate(status minimizer.Status, steps int, duration time.Duration) {
	b.Candidates.Add(1)
	b.Steps.Add(int64(steps))
	b.CandidateTotalNanos.Add(duration.Nanoseconds())
	switch status {
	case minimizer.Converged:
		b.Converged.Add(1)
	case minimizer.Stalled:
		b.Stalled.Add(1)
	case minimizer.MaxIterReached:
		b.MaxIterReached.Add(1)
	}
}

// RecordSeed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeed(_ uint64, found bool, duration time.Duration) {
	b.Seeds.Add(1)
	b.SeedTotalNanos.Add(duration.Nanoseconds())
	if found {
		b.SeedsFound.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	stats := BasicMetricsStats{
		Candidates:     b.Candidates.Load(),
		Converged:      b.Converged.Load(),
		Stalled:        b.Stalled.Load(),
		MaxIterReached: b.MaxIterReached.Load(),
		Steps:          b.Steps.Load(),
		Seeds:          b.Seeds.Load(),
		SeedsFound:     b.SeedsFound.Load(),
	}
	if stats.Candidates > 0 {
		stats.CandidateAvgNanos = b.CandidateTotalNanos.Load() / stats.Candidates
	}
	return stats
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Candidates        int64
	Converged         int64
	Stalled           int64
	MaxIterReached    int64
	Steps             int64
	CandidateAvgNanos int64
	Seeds             int64
	SeedsFound        int64
}
