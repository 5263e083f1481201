// Package genetics provides genotype sets and the mating tensor: the
// offspring-genotype probability distribution for each ordered pair of
// parental genotypes under a single-locus model.
package genetics

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument indicates malformed genotype or tensor inputs.
var ErrInvalidArgument = errors.New("genetics: invalid argument")

// Genotypes is an ordered set of named genotype categories. Insertion order
// is the canonical axis order of every genotype-indexed matrix and tensor.
type Genotypes struct {
	labels []string
	index  map[string]int
}

// NewGenotypes creates a genotype set from unique, non-empty labels.
func NewGenotypes(labels ...string) (Genotypes, error) {
	if len(labels) == 0 {
		return Genotypes{}, fmt.Errorf("%w: need at least one genotype", ErrInvalidArgument)
	}
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		if l == "" {
			return Genotypes{}, fmt.Errorf("%w: empty genotype label at position %d", ErrInvalidArgument, i)
		}
		if _, dup := idx[l]; dup {
			return Genotypes{}, fmt.Errorf("%w: duplicate genotype label %q", ErrInvalidArgument, l)
		}
		idx[l] = i
	}
	return Genotypes{labels: append([]string(nil), labels...), index: idx}, nil
}

// Len returns the number of genotypes.
func (g Genotypes) Len() int { return len(g.labels) }

// Label returns the label of genotype i.
func (g Genotypes) Label(i int) string { return g.labels[i] }

// Labels returns the labels in canonical order.
func (g Genotypes) Labels() []string { return append([]string(nil), g.labels...) }

// Index returns the canonical index of a label.
func (g Genotypes) Index(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// Equal reports whether two genotype sets have the same labels in the same
// order.
func (g Genotypes) Equal(o Genotypes) bool {
	if len(g.labels) != len(o.labels) {
		return false
	}
	for i := range g.labels {
		if g.labels[i] != o.labels[i] {
			return false
		}
	}
	return true
}

// BiallelicAlleleCounts returns the tracked-allele copy number per genotype
// for the canonical biallelic ordering (homozygous recessive, heterozygote,
// homozygous dominant): 0, 1, 2.
func BiallelicAlleleCounts() []int { return []int{0, 1, 2} }
