// Package sim implements the forward demographic transition and the
// simulation driver that iterates it over a time grid.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/dispersal"
	"github.com/efwall/genoscape/population"
)

// Sentinel errors for the engine and driver.
var (
	ErrConfiguration = errors.New("sim: configuration error")
	ErrNegativeState = errors.New("sim: negative state")
)

// negTolerance bounds the numeric underflow the engine clamps silently to
// zero; anything more negative is treated as a bug and aborts the step.
const negTolerance = 1e-9

// Breakdown holds the six intermediate quantities of one generation step,
// each shaped like the state matrix N. SeedsDispersed counts seeds arriving
// at habitable cells by offspring genotype; seeds dispersed onto
// non-habitable accessible sinks are lost.
type Breakdown struct {
	Seeders        *mat.Dense
	Pollen         *mat.Dense
	SeedProduction *mat.Dense
	SeedsDispersed *mat.Dense
	Germination    *mat.Dense
	Death          *mat.Dense

	// Clamped counts next-state entries reset to zero from floating-point
	// underflow during this step.
	Clamped int
}

// Complete reports whether all six quantities are present.
func (b *Breakdown) Complete() bool {
	return b != nil && b.Seeders != nil && b.Pollen != nil && b.SeedProduction != nil &&
		b.SeedsDispersed != nil && b.Germination != nil && b.Death != nil
}

// Generation computes one full forward transition from the population's
// current state: seeders, pollen flux, seed production via the mating
// tensor, seed dispersal, germination and death, returning the next state
// and the full breakdown.
//
// With expected=true every quantity is a deterministic expectation. With
// expected=false, seeders and germinants are Poisson-sampled and deaths are
// Binomial-sampled on rounded counts; src must then be non-nil. Pollen flux
// always uses the expected current state and is never resampled: pollen is
// produced by all present individuals, not only seeders.
func Generation(p *population.Population, m *demography.Model, cov demography.Covariates, expected bool, src rand.Source) (*mat.Dense, *Breakdown, error) {
	if !m.IsSetup() {
		return nil, nil, fmt.Errorf("%w: model not set up against a grid", ErrConfiguration)
	}
	if !expected && src == nil {
		return nil, nil, fmt.Errorf("%w: stochastic mode needs a random source", ErrConfiguration)
	}
	n := p.N
	rows, cols := n.Dims()
	habOfAcc := m.HabitableOfAccessible()

	// 1. Seeders: N × probability of seeding.
	pSeed, err := m.Seeding.Resolve(n, cov)
	if err != nil {
		return nil, nil, err
	}
	seeders := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for g := 0; g < cols; g++ {
			mean := n.At(i, g) * pSeed.At(i, g)
			if !expected {
				mean = poisson(mean, src)
			}
			seeders.Set(i, g, mean)
		}
	}

	// 2. Pollen flux: pollen migration applied to full N.
	pollen := applyMigration(m.PollenMatrix(), n, habOfAcc, rows, cols)

	// 3. Seed production: local bilinear contraction of seeders and pollen
	// through the mating tensor, per habitable location.
	seedProd := seedProduction(seeders, pollen, m)

	// 4. Seed dispersal, scaled by fecundity.
	dispersed := applyMigration(m.SeedMatrix(), seedProd, habOfAcc, rows, cols)
	dispersed.Scale(m.Fecundity, dispersed)

	// 5. Germination, possibly density-dependent on the current state.
	pGerm, err := m.Germination.Resolve(n, cov)
	if err != nil {
		return nil, nil, err
	}
	germ := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for g := 0; g < cols; g++ {
			mean := dispersed.At(i, g) * pGerm.At(i, g)
			if !expected {
				mean = poisson(mean, src)
			}
			germ.Set(i, g, mean)
		}
	}

	// 6. Death: N × (1 − survival), exact Binomial in stochastic mode.
	pSurv, err := m.Survival.Resolve(n, cov)
	if err != nil {
		return nil, nil, err
	}
	death := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for g := 0; g < cols; g++ {
			if expected {
				death.Set(i, g, n.At(i, g)*(1-pSurv.At(i, g)))
			} else {
				death.Set(i, g, binomial(n.At(i, g), 1-pSurv.At(i, g), src))
			}
		}
	}

	// 7. Next state, clamping harmless underflow and failing loudly on
	// anything larger.
	bd := &Breakdown{
		Seeders:        seeders,
		Pollen:         pollen,
		SeedProduction: seedProd,
		SeedsDispersed: dispersed,
		Germination:    germ,
		Death:          death,
	}
	next := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for g := 0; g < cols; g++ {
			v := n.At(i, g) - death.At(i, g) + germ.At(i, g)
			if v < 0 {
				if v < -negTolerance {
					return nil, nil, fmt.Errorf("%w: next count %v at row %d genotype %d", ErrNegativeState, v, i, g)
				}
				v = 0
				bd.Clamped++
			}
			next.Set(i, g, v)
		}
	}
	if bd.Clamped > 0 {
		Logf("generation: clamped %d underflowed counts to zero", bd.Clamped)
	}
	return next, bd, nil
}

// applyMigration accumulates M applied per genotype column to src, keeping
// only destinations that are habitable state rows. Mass sent to sink cells
// is dropped.
func applyMigration(m *dispersal.Matrix, src *mat.Dense, habOfAcc []int, rows, cols int) *mat.Dense {
	dst := mat.NewDense(rows, cols, nil)
	m.Each(func(from, to int, w float64) {
		r := habOfAcc[to]
		if r < 0 {
			return
		}
		for g := 0; g < cols; g++ {
			dst.Set(r, g, dst.At(r, g)+w*src.At(from, g))
		}
	})
	return dst
}

// seedProduction contracts the local seeder and pollen genotype vectors
// through the mating tensor, one evaluation per habitable location.
func seedProduction(seeders, pollen *mat.Dense, m *demography.Model) *mat.Dense {
	rows, cols := seeders.Dims()
	t := m.Tensor
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for u := 0; u < cols; u++ {
			su := seeders.At(i, u)
			if su == 0 {
				continue
			}
			for v := 0; v < cols; v++ {
				pv := pollen.At(i, v)
				if pv == 0 {
					continue
				}
				for g := 0; g < cols; g++ {
					pr := t.At(u, v, g)
					if pr == 0 {
						continue
					}
					out.Set(i, g, out.At(i, g)+su*pv*pr)
				}
			}
		}
	}
	return out
}

func poisson(mean float64, src rand.Source) float64 {
	if mean <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: mean, Src: src}.Rand()
}

func binomial(n, p float64, src rand.Source) float64 {
	n = math.Round(n)
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	return distuv.Binomial{N: n, P: p, Src: src}.Rand()
}
