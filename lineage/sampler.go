// Package lineage reconstructs per-allele ancestry backward through a
// recorded forward simulation: given one generation's breakdown, it samples
// each lineage's parental location and genotype consistent with the forward
// model's probabilities, reversing dispersal and mating.
package lineage

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/landscape"
	"github.com/efwall/genoscape/sim"
)

// Sentinel errors for backward sampling.
var (
	// ErrConfiguration indicates a breakdown missing required quantities or
	// inputs inconsistent with the model.
	ErrConfiguration = errors.New("lineage: configuration error")
	// ErrSampling indicates all backward weights at some step were zero.
	// A lineage that validly exists should never hit this; it signals a
	// model/history inconsistency.
	ErrSampling = errors.New("lineage: zero-weight sampling step")
)

// Lineage is one tracked ancestral line of a single allele copy: the state
// row (habitable location) and genotype of its current carrier.
type Lineage struct {
	Row      int
	Genotype int
}

// Step samples, for each lineage, the parental location and genotype one
// generation back from the given breakdown. nBefore is the state the
// breakdown's generation started from; alleles gives the tracked-allele copy
// number per genotype. Results and errors are per-lineage: a failed lineage
// does not abort the batch.
func Step(lineages []Lineage, nBefore *mat.Dense, bd *sim.Breakdown, m *demography.Model, grid *landscape.Grid, alleles []int, src rand.Source) ([]Lineage, []error, error) {
	if err := validate(nBefore, bd, m, grid, alleles); err != nil {
		return nil, nil, err
	}
	if src == nil {
		return nil, nil, fmt.Errorf("%w: nil random source", ErrConfiguration)
	}
	rng := rand.New(src)
	parents := make([]Lineage, len(lineages))
	errs := make([]error, len(lineages))
	for i, l := range lineages {
		parents[i], errs[i] = stepOne(l, nBefore, bd, m, grid, alleles, rng, src)
	}
	return parents, errs, nil
}

func validate(nBefore *mat.Dense, bd *sim.Breakdown, m *demography.Model, grid *landscape.Grid, alleles []int) error {
	if !bd.Complete() {
		return fmt.Errorf("%w: breakdown is missing required quantities", ErrConfiguration)
	}
	if !m.IsSetup() {
		return fmt.Errorf("%w: model not set up", ErrConfiguration)
	}
	if nBefore == nil {
		return fmt.Errorf("%w: nil prior state", ErrConfiguration)
	}
	if len(alleles) != m.Genotypes.Len() {
		return fmt.Errorf("%w: allele counts cover %d genotypes, model has %d", ErrConfiguration, len(alleles), m.Genotypes.Len())
	}
	if grid == nil {
		return fmt.Errorf("%w: nil grid", ErrConfiguration)
	}
	return nil
}

func stepOne(l Lineage, nBefore *mat.Dense, bd *sim.Breakdown, m *demography.Model, grid *landscape.Grid, alleles []int, rng *rand.Rand, src rand.Source) (Lineage, error) {
	row, g := l.Row, l.Genotype
	ng := m.Genotypes.Len()
	rows, _ := nBefore.Dims()
	if row < 0 || row >= rows || g < 0 || g >= ng {
		return Lineage{}, fmt.Errorf("%w: lineage (%d,%d) out of range", ErrConfiguration, row, g)
	}

	// Survival vs germination: was the carrier already present, or newly
	// germinated this generation?
	surv := nBefore.At(row, g) - bd.Death.At(row, g)
	if surv < 0 {
		surv = 0
	}
	germ := bd.Germination.At(row, g)
	if surv+germ <= 0 {
		return Lineage{}, fmt.Errorf("%w: no survivors or germinants at row %d genotype %d", ErrSampling, row, g)
	}
	if rng.Float64() < surv/(surv+germ) {
		// Already present one generation earlier; no movement.
		return l, nil
	}

	// Germinated: reverse seed dispersal. Source weight is the seed
	// migration weight into this cell times local seed production of the
	// lineage's genotype.
	destOrd := grid.AccessibleOrd(grid.CellOfRow(row))
	var srcRows []int
	var weights []float64
	m.SeedMatrix().EachInCol(destOrd, func(from int, w float64) {
		srcRows = append(srcRows, from)
		weights = append(weights, w*bd.SeedProduction.At(from, g))
	})
	k, err := draw(weights, src)
	if err != nil {
		return Lineage{}, fmt.Errorf("reversing seed dispersal into row %d genotype %d: %w", row, g, err)
	}
	source := srcRows[k]

	// Reverse mating: draw the ordered parental pair (u,v) at the source.
	pair := make([]float64, ng*ng)
	for u := 0; u < ng; u++ {
		su := bd.Seeders.At(source, u)
		if su == 0 {
			continue
		}
		for v := 0; v < ng; v++ {
			pair[u*ng+v] = su * bd.Pollen.At(source, v) * m.Tensor.At(u, v, g)
		}
	}
	k, err = draw(pair, src)
	if err != nil {
		return Lineage{}, fmt.Errorf("reversing mating at row %d genotype %d: %w", source, g, err)
	}
	u, v := k/ng, k%ng

	// Whose allele descended. A heterozygote offspring carries one tracked
	// copy, donated by one parent: weight seed vs pollen parent by
	// tracked-allele copy number, alleles(u)/(alleles(u)+alleles(v)). A
	// homozygous offspring received exactly one copy from each parent, so
	// the followed copy is either's with equal probability.
	wu, wv := float64(alleles[u]), float64(alleles[v])
	if alleles[g] != 1 {
		wu, wv = 1, 1
	}
	if wu+wv <= 0 {
		return Lineage{}, fmt.Errorf("%w: neither parent genotype (%d,%d) carries the tracked allele", ErrSampling, u, v)
	}
	if rng.Float64() < wu/(wu+wv) {
		// Seed parent: stays at the seed source.
		return Lineage{Row: source, Genotype: u}, nil
	}

	// Pollen parent: reverse pollen dispersal from the seed source, weighted
	// by full prior state (pollen is produced by all present individuals).
	pollenOrd := grid.AccessibleOrd(grid.CellOfRow(source))
	srcRows = srcRows[:0]
	weights = weights[:0]
	m.PollenMatrix().EachInCol(pollenOrd, func(from int, w float64) {
		srcRows = append(srcRows, from)
		weights = append(weights, w*nBefore.At(from, v))
	})
	k, err = draw(weights, src)
	if err != nil {
		return Lineage{}, fmt.Errorf("reversing pollen dispersal into row %d genotype %d: %w", source, v, err)
	}
	return Lineage{Row: srcRows[k], Genotype: v}, nil
}

// draw samples an index proportional to weights.
func draw(weights []float64, src rand.Source) (int, error) {
	if len(weights) == 0 || floats.Sum(weights) <= 0 {
		return 0, ErrSampling
	}
	c := distuv.NewCategorical(weights, src)
	return int(c.Rand()), nil
}
