// Package minimizer runs adaptive-step gradient descent on one candidate
// vector until it reaches a fiducial, stalls, or exhausts its step budget.
//
// Descent proceeds in blocks of Options.BlockSize elementary steps. Each step
// moves the vector against the tangent-space gradient and recomputes the
// G-matrix. After every block the global phase is stripped, the vector is
// renormalized, and the stopping rules are evaluated:
//
//   - Stalled: the block improved the loss by less than 1 - StallFactor
//   - Converged: loss < ConvergedLoss
//   - step annealing: the step size halves once below FirstAnnealLoss and once
//     more below SecondAnnealLoss
//   - MaxIterReached: MaxIter elementary steps without any of the above
//
// A Converged run is Accepted only when a fresh evaluation of the loss is
// also below AcceptLoss.
package minimizer

import (
	"github.com/orneryd/sicsearch/pkg/gmatrix"
	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/simd"
)

// Status is the terminal state of one descent.
type Status int

const (
	// Searching is the state while descent is running.
	Searching Status = iota
	// Converged means the loss dropped below ConvergedLoss.
	Converged
	// Stalled means a block improved the loss by less than the stall factor allows.
	Stalled
	// MaxIterReached means the step budget ran out.
	MaxIterReached
)

func (s Status) String() string {
	switch s {
	case Searching:
		return "searching"
	case Converged:
		return "converged"
	case Stalled:
		return "stalled"
	case MaxIterReached:
		return "max_iter_reached"
	default:
		return "unknown"
	}
}

// Options tunes the descent. The thresholds are empirical for the G-matrix
// loss landscape.
type Options struct {
	StepSize         float64
	MaxIter          int
	BlockSize        int
	StallFactor      float64
	ConvergedLoss    float64
	FirstAnnealLoss  float64
	SecondAnnealLoss float64
	AcceptLoss       float64
	// RecordTrajectory appends (steps, loss) after every block.
	RecordTrajectory bool
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		StepSize:         0.2,
		MaxIter:          100_000,
		BlockSize:        100,
		StallFactor:      0.999,
		ConvergedLoss:    1e-15,
		FirstAnnealLoss:  1e-13,
		SecondAnnealLoss: 1e-14,
		AcceptLoss:       2e-15,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.StepSize <= 0 {
		o.StepSize = def.StepSize
	}
	if o.MaxIter <= 0 {
		o.MaxIter = def.MaxIter
	}
	if o.BlockSize <= 0 {
		o.BlockSize = def.BlockSize
	}
	if o.StallFactor == 0 {
		o.StallFactor = def.StallFactor
	}
	if o.ConvergedLoss == 0 {
		o.ConvergedLoss = def.ConvergedLoss
	}
	if o.FirstAnnealLoss == 0 {
		o.FirstAnnealLoss = def.FirstAnnealLoss
	}
	if o.SecondAnnealLoss == 0 {
		o.SecondAnnealLoss = def.SecondAnnealLoss
	}
	if o.AcceptLoss == 0 {
		o.AcceptLoss = def.AcceptLoss
	}
	return o
}

// TrajectoryPoint is one block-boundary sample of the loss.
type TrajectoryPoint struct {
	Step int
	Loss float64
}

// Result is the outcome of one descent. Vector is the final iterate.
type Result struct {
	Status     Status
	Accepted   bool
	Loss       float64
	Steps      int
	StepSize   float64
	Vector     *vector.Vector
	Trajectory []TrajectoryPoint
}

// Minimize descends from v, mutating it in place, and returns the outcome.
// It never returns an error: failing to converge is a normal result.
func Minimize(v *vector.Vector, opts Options) Result {
	opts = opts.withDefaults()
	d := v.Dim()
	grad := vector.New(d)
	g := gmatrix.New(v)

	stepSize := opts.StepSize
	annealed := 0
	prevLoss := g.Loss()

	res := Result{Status: Searching, Vector: v, Loss: prevLoss}
	if opts.RecordTrajectory {
		res.Trajectory = make([]TrajectoryPoint, 0, opts.MaxIter/opts.BlockSize)
	}

	steps := 0
	for steps < opts.MaxIter {
		for inner := 0; inner < opts.BlockSize; inner++ {
			gmatrix.NormalizedGradient(g, v, grad)
			simd.AxpyInPlace(v.Raw(), -stepSize, grad.Raw())
			g.Update(v)
		}
		steps += opts.BlockSize

		v.RemoveGlobalPhase()
		v.Normalize()
		g.Update(v)

		loss := g.Loss()
		res.Loss = loss
		if opts.RecordTrajectory {
			res.Trajectory = append(res.Trajectory, TrajectoryPoint{Step: steps - opts.BlockSize, Loss: loss})
		}

		if loss >= opts.StallFactor*prevLoss {
			res.Status = Stalled
			break
		}
		prevLoss = loss

		if loss < opts.ConvergedLoss {
			res.Status = Converged
			break
		}

		switch {
		case annealed == 0 && loss < opts.FirstAnnealLoss:
			stepSize *= 0.5
			annealed = 1
		case annealed == 1 && loss < opts.SecondAnnealLoss:
			stepSize *= 0.5
			annealed = 2
		}
	}
	if res.Status == Searching {
		res.Status = MaxIterReached
	}

	res.Steps = steps
	res.StepSize = stepSize
	if res.Status == Converged {
		res.Accepted = gmatrix.Loss(v) < opts.AcceptLoss
	}
	return res
}
