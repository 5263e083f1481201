package sim

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/population"
)

// Summary reduces a state matrix to one value per computed generation.
type Summary func(n *mat.Dense) float64

// StopPredicate is checked after every completed generation; returning true
// ends the run early with the partial history.
type StopPredicate func(n *mat.Dense) bool

// RunConfig controls one simulation run.
type RunConfig struct {
	// Times are the increasing generation numbers whose states should be
	// retained as snapshots. The first entry is the starting time. Every
	// intermediate integer generation is still computed.
	Times []int
	// Covariates are passed to computed vital rates each generation.
	Covariates demography.Covariates
	// Summaries are evaluated on every computed generation's new state.
	Summaries map[string]Summary
	// Stop, when non-nil, ends the run early.
	Stop StopPredicate
	// RetainHistory keeps the full per-generation breakdown for later
	// lineage tracing. Memory grows with cells × genotypes × generations,
	// so this is opt-in.
	RetainHistory bool
	// Expected selects deterministic expectations over Poisson/Binomial
	// sampling.
	Expected bool
	// Src is the random source for stochastic runs.
	Src rand.Source
}

// History is the retained forward record consumed by lineage tracing.
// States[k] is the state entering step k and Breakdowns[k] the step's
// intermediates; States has one trailing entry for the final state.
type History struct {
	Start      int
	States     []*mat.Dense
	Breakdowns []*Breakdown
}

// Steps returns the number of computed generations.
func (h *History) Steps() int { return len(h.Breakdowns) }

// Result is the outcome of a simulation run.
type Result struct {
	// Times are the requested snapshot times actually reached.
	Times []int
	// Snapshots are the states at those times.
	Snapshots []*mat.Dense
	// SummaryTimes are the generation numbers summaries were evaluated at.
	SummaryTimes []int
	// Summaries maps summary name to its series.
	Summaries map[string][]float64
	// Final is the last computed state.
	Final *mat.Dense
	// History is non-nil when RetainHistory was set.
	History *History
	// Stopped reports early termination by the stop predicate.
	Stopped bool
}

// Simulate iterates the generation engine over cfg.Times, threading the
// state forward one unit step at a time. Early termination by the stop
// predicate returns the partial result, not an error.
func Simulate(p *population.Population, m *demography.Model, cfg RunConfig) (*Result, error) {
	if len(cfg.Times) == 0 {
		return nil, fmt.Errorf("%w: empty time grid", ErrConfiguration)
	}
	for i := 1; i < len(cfg.Times); i++ {
		if cfg.Times[i] <= cfg.Times[i-1] {
			return nil, fmt.Errorf("%w: time grid must be strictly increasing", ErrConfiguration)
		}
	}
	if err := m.Setup(p); err != nil {
		return nil, err
	}

	wanted := make(map[int]bool, len(cfg.Times))
	for _, t := range cfg.Times {
		wanted[t] = true
	}
	start, end := cfg.Times[0], cfg.Times[len(cfg.Times)-1]

	res := &Result{Summaries: make(map[string][]float64, len(cfg.Summaries))}
	cur := p.Clone()
	if cfg.RetainHistory {
		res.History = &History{Start: start, States: []*mat.Dense{mat.DenseCopyOf(cur.N)}}
	}
	res.Times = append(res.Times, start)
	res.Snapshots = append(res.Snapshots, mat.DenseCopyOf(cur.N))

	for t := start; t < end; t++ {
		next, bd, err := Generation(cur, m, cfg.Covariates, cfg.Expected, cfg.Src)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", t+1, err)
		}
		cur.N = next

		if cfg.RetainHistory {
			res.History.Breakdowns = append(res.History.Breakdowns, bd)
			res.History.States = append(res.History.States, mat.DenseCopyOf(next))
		}
		res.SummaryTimes = append(res.SummaryTimes, t+1)
		for name, fn := range cfg.Summaries {
			res.Summaries[name] = append(res.Summaries[name], fn(next))
		}
		if wanted[t+1] {
			res.Times = append(res.Times, t+1)
			res.Snapshots = append(res.Snapshots, mat.DenseCopyOf(next))
		}
		if cfg.Stop != nil && cfg.Stop(next) {
			res.Stopped = true
			break
		}
	}
	res.Final = mat.DenseCopyOf(cur.N)
	return res, nil
}
