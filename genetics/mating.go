package genetics

import (
	"fmt"
	"math"
)

// probTolerance is the floating tolerance for offspring distributions to sum
// to one.
const probTolerance = 1e-9

// MatingTensor holds T[u,v,g]: the probability that a cross between
// seed-parent genotype u and pollen-parent genotype v produces offspring
// genotype g. For every (u,v) the distribution over g sums to one.
//
// The engine and the lineage sampler treat the tensor as opaque; nothing
// downstream assumes exactly three genotypes.
type MatingTensor struct {
	n int
	p []float64 // row-major [u][v][g]
}

// NewMatingTensor builds a tensor for n genotypes from row-major
// probabilities laid out as probs[(u*n+v)*n+g]. Each (u,v) row must be a
// probability distribution.
func NewMatingTensor(n int, probs []float64) (MatingTensor, error) {
	if n <= 0 {
		return MatingTensor{}, fmt.Errorf("%w: need a positive genotype count, got %d", ErrInvalidArgument, n)
	}
	if len(probs) != n*n*n {
		return MatingTensor{}, fmt.Errorf("%w: tensor needs %d entries, got %d", ErrInvalidArgument, n*n*n, len(probs))
	}
	t := MatingTensor{n: n, p: append([]float64(nil), probs...)}
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			sum := 0.0
			for g := 0; g < n; g++ {
				pr := t.At(u, v, g)
				if pr < 0 {
					return MatingTensor{}, fmt.Errorf("%w: negative probability at (%d,%d,%d)", ErrInvalidArgument, u, v, g)
				}
				sum += pr
			}
			if math.Abs(sum-1) > probTolerance {
				return MatingTensor{}, fmt.Errorf("%w: offspring probabilities for cross (%d,%d) sum to %v, want 1", ErrInvalidArgument, u, v, sum)
			}
		}
	}
	return t, nil
}

// NewMendelianTensor builds the single-locus biallelic segregation tensor
// for an ordered triple of genotypes (homozygous recessive, heterozygote,
// homozygous dominant). Models with a different genotype count must supply a
// custom tensor through NewMatingTensor.
func NewMendelianTensor(g Genotypes) (MatingTensor, error) {
	if g.Len() != 3 {
		return MatingTensor{}, fmt.Errorf("%w: built-in Mendelian tensor needs exactly 3 genotypes, got %d", ErrInvalidArgument, g.Len())
	}
	counts := BiallelicAlleleCounts()
	n := 3
	p := make([]float64, n*n*n)
	for u := 0; u < n; u++ {
		// Probability a gamete from genotype u carries the dominant allele.
		qu := float64(counts[u]) / 2
		for v := 0; v < n; v++ {
			qv := float64(counts[v]) / 2
			base := (u*n + v) * n
			p[base+0] = (1 - qu) * (1 - qv)
			p[base+1] = qu*(1-qv) + (1-qu)*qv
			p[base+2] = qu * qv
		}
	}
	return NewMatingTensor(n, p)
}

// NumGenotypes returns the genotype count the tensor is defined over.
func (t MatingTensor) NumGenotypes() int { return t.n }

// At returns T[u,v,g].
func (t MatingTensor) At(u, v, g int) float64 { return t.p[(u*t.n+v)*t.n+g] }
