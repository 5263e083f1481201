// Package population holds the simulation state: a non-negative
// location×genotype count matrix bound to a landscape grid and an ordered
// genotype set. Rows index habitable cells in grid row order; columns index
// genotypes in canonical order.
package population

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/efwall/genoscape/genetics"
	"github.com/efwall/genoscape/landscape"
)

// ErrInvalidArgument indicates state inputs inconsistent with the grid or
// genotype set.
var ErrInvalidArgument = errors.New("population: invalid argument")

// Population binds a state matrix N to its grid and genotypes.
type Population struct {
	Grid      *landscape.Grid
	Genotypes genetics.Genotypes
	N         *mat.Dense
}

// New creates a zero-count population on the given grid.
func New(grid *landscape.Grid, genotypes genetics.Genotypes) (*Population, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidArgument)
	}
	if grid.NumHabitable() == 0 {
		return nil, fmt.Errorf("%w: grid has no habitable cells", ErrInvalidArgument)
	}
	if genotypes.Len() == 0 {
		return nil, fmt.Errorf("%w: empty genotype set", ErrInvalidArgument)
	}
	return &Population{
		Grid:      grid,
		Genotypes: genotypes,
		N:         mat.NewDense(grid.NumHabitable(), genotypes.Len(), nil),
	}, nil
}

// SetCount sets the count of a genotype at a habitable grid cell.
func (p *Population) SetCount(cell int, genotype string, count float64) error {
	row := p.Grid.RowOf(cell)
	if row < 0 {
		return fmt.Errorf("%w: cell %d is not habitable", ErrInvalidArgument, cell)
	}
	g, ok := p.Genotypes.Index(genotype)
	if !ok {
		return fmt.Errorf("%w: unknown genotype %q", ErrInvalidArgument, genotype)
	}
	if count < 0 {
		return fmt.Errorf("%w: negative count %v", ErrInvalidArgument, count)
	}
	p.N.Set(row, g, count)
	return nil
}

// Count returns the count of a genotype at a habitable grid cell.
func (p *Population) Count(cell int, genotype string) (float64, error) {
	row := p.Grid.RowOf(cell)
	if row < 0 {
		return 0, fmt.Errorf("%w: cell %d is not habitable", ErrInvalidArgument, cell)
	}
	g, ok := p.Genotypes.Index(genotype)
	if !ok {
		return 0, fmt.Errorf("%w: unknown genotype %q", ErrInvalidArgument, genotype)
	}
	return p.N.At(row, g), nil
}

// Total returns the total count over all cells and genotypes.
func (p *Population) Total() float64 {
	return mat.Sum(p.N)
}

// GenotypeTotals returns per-genotype totals in canonical order.
func (p *Population) GenotypeTotals() []float64 {
	rows, cols := p.N.Dims()
	out := make([]float64, cols)
	for g := 0; g < cols; g++ {
		for r := 0; r < rows; r++ {
			out[g] += p.N.At(r, g)
		}
	}
	return out
}

// Clone returns a deep copy sharing the (immutable) grid and genotype set.
func (p *Population) Clone() *Population {
	n := mat.DenseCopyOf(p.N)
	return &Population{Grid: p.Grid, Genotypes: p.Genotypes, N: n}
}
