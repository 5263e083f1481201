// Package demography bundles the per-generation vital rates, dispersal
// specifications and mating tensor into a model, and materializes the
// model's migration matrices against a population's grid.
package demography

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrConfiguration indicates an incomplete or inconsistent demographic
// model: mismatched genotype sets, missing rates or tensor, or rate
// resolution producing the wrong shape.
var ErrConfiguration = errors.New("demography: configuration error")

// Covariates carries auxiliary per-run quantities (for example carrying
// capacity) into computed vital rates.
type Covariates map[string]float64

// RateFunc computes a per-location, per-genotype rate matrix from the
// current state and covariates. Density dependence enters the model here.
type RateFunc func(n *mat.Dense, cov Covariates) *mat.Dense

type rateKind int

const (
	rateUnset rateKind = iota
	rateConstant
	ratePerGenotype
	rateComputed
)

// Rate is a vital rate: a constant, a per-genotype vector, or a function of
// the current state. Function-valued rates are resolved freshly on every
// generation call.
type Rate struct {
	kind        rateKind
	value       float64
	perGenotype []float64
	fn          RateFunc
}

// Constant returns a rate with the same value for every location and
// genotype.
func Constant(v float64) Rate { return Rate{kind: rateConstant, value: v} }

// PerGenotype returns a rate broadcast from one value per genotype.
func PerGenotype(vs ...float64) Rate {
	return Rate{kind: ratePerGenotype, perGenotype: append([]float64(nil), vs...)}
}

// Computed returns a rate resolved from the current state each generation.
func Computed(fn RateFunc) Rate { return Rate{kind: rateComputed, fn: fn} }

// Defined reports whether the rate has been set.
func (r Rate) Defined() bool { return r.kind != rateUnset }

// Resolve materializes the rate as a matrix shaped like n.
func (r Rate) Resolve(n *mat.Dense, cov Covariates) (*mat.Dense, error) {
	rows, cols := n.Dims()
	switch r.kind {
	case rateConstant:
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, r.value)
			}
		}
		return out, nil
	case ratePerGenotype:
		if len(r.perGenotype) != cols {
			return nil, fmt.Errorf("%w: per-genotype rate has %d entries, state has %d genotypes", ErrConfiguration, len(r.perGenotype), cols)
		}
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, r.perGenotype[j])
			}
		}
		return out, nil
	case rateComputed:
		out := r.fn(n, cov)
		if out == nil {
			return nil, fmt.Errorf("%w: computed rate returned nil", ErrConfiguration)
		}
		or, oc := out.Dims()
		if or != rows || oc != cols {
			return nil, fmt.Errorf("%w: computed rate has shape %dx%d, want %dx%d", ErrConfiguration, or, oc, rows, cols)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: rate not set", ErrConfiguration)
	}
}

// CapacityGermination returns a density-dependent germination rate with a
// Beverton-Holt form: base × K/(K + local total), where K is read from the
// "capacity" covariate. Germination falls toward zero as a cell fills.
func CapacityGermination(base float64) Rate {
	return Computed(func(n *mat.Dense, cov Covariates) *mat.Dense {
		rows, cols := n.Dims()
		k := cov["capacity"]
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			total := 0.0
			for j := 0; j < cols; j++ {
				total += n.At(i, j)
			}
			p := base
			if k > 0 {
				p = base * k / (k + total)
			}
			for j := 0; j < cols; j++ {
				out.Set(i, j, p)
			}
		}
		return out
	})
}
