package demography

import (
	"fmt"

	"github.com/efwall/genoscape/dispersal"
	"github.com/efwall/genoscape/genetics"
	"github.com/efwall/genoscape/landscape"
	"github.com/efwall/genoscape/population"
)

// DispersalSpec describes one migration matrix before materialization.
type DispersalSpec struct {
	Kernel    dispersal.Kernel
	Sigma     float64
	Radius    float64
	MinWeight float64
	Normalize float64
}

func (d DispersalSpec) options() dispersal.Options {
	return dispersal.Options{
		Kernel:    d.Kernel,
		Sigma:     d.Sigma,
		Radius:    d.Radius,
		MinWeight: d.MinWeight,
		Normalize: d.Normalize,
	}
}

// Model holds the per-generation vital rates, the mating tensor and the two
// dispersal specifications. Setup materializes the migration matrices
// against a concrete grid; after that the model is immutable unless the grid
// changes.
type Model struct {
	Genotypes   genetics.Genotypes
	Tensor      genetics.MatingTensor
	Seeding     Rate
	Germination Rate
	Survival    Rate
	Fecundity   float64
	Pollen      DispersalSpec
	Seed        DispersalSpec

	grid     *landscape.Grid
	pollenM  *dispersal.Matrix
	seedM    *dispersal.Matrix
	habOfAcc []int
}

// Validate checks that the model is complete enough to run.
func (m *Model) Validate() error {
	if m.Genotypes.Len() == 0 {
		return fmt.Errorf("%w: no genotypes", ErrConfiguration)
	}
	if m.Tensor.NumGenotypes() != m.Genotypes.Len() {
		return fmt.Errorf("%w: mating tensor covers %d genotypes, model has %d", ErrConfiguration, m.Tensor.NumGenotypes(), m.Genotypes.Len())
	}
	if !m.Seeding.Defined() || !m.Germination.Defined() || !m.Survival.Defined() {
		return fmt.Errorf("%w: seeding, germination and survival rates must all be set", ErrConfiguration)
	}
	if m.Fecundity < 0 {
		return fmt.Errorf("%w: negative fecundity %v", ErrConfiguration, m.Fecundity)
	}
	return nil
}

// Setup materializes the pollen and seed migration matrices against the
// population's grid (sources: habitable cells, destinations: accessible
// cells) and caches them. Calling Setup again with an identical grid is a
// no-op; a changed grid triggers re-materialization.
func (m *Model) Setup(p *population.Population) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if !m.Genotypes.Equal(p.Genotypes) {
		return fmt.Errorf("%w: model genotypes %v do not match population genotypes %v",
			ErrConfiguration, m.Genotypes.Labels(), p.Genotypes.Labels())
	}
	if m.grid != nil && m.grid.Equal(p.Grid) {
		return nil
	}

	from := p.Grid.HabitableCells()
	to := p.Grid.AccessibleCells()
	pollenM, err := dispersal.Build(p.Grid, from, to, nil, m.Pollen.options())
	if err != nil {
		return fmt.Errorf("building pollen migration matrix: %w", err)
	}
	seedM, err := dispersal.Build(p.Grid, from, to, nil, m.Seed.options())
	if err != nil {
		return fmt.Errorf("building seed migration matrix: %w", err)
	}

	// Destination ordinals are accessible ordinals; map each back to a
	// habitable state row, -1 for pure sink cells.
	habOfAcc := make([]int, len(to))
	for k, cell := range to {
		habOfAcc[k] = p.Grid.RowOf(cell)
	}

	m.grid = p.Grid
	m.pollenM = pollenM
	m.seedM = seedM
	m.habOfAcc = habOfAcc
	return nil
}

// IsSetup reports whether migration matrices have been materialized.
func (m *Model) IsSetup() bool { return m.pollenM != nil && m.seedM != nil }

// PollenMatrix returns the materialized pollen migration matrix.
func (m *Model) PollenMatrix() *dispersal.Matrix { return m.pollenM }

// SeedMatrix returns the materialized seed migration matrix.
func (m *Model) SeedMatrix() *dispersal.Matrix { return m.seedM }

// HabitableOfAccessible maps destination (accessible) ordinals of the
// materialized matrices to habitable state rows, -1 for sink cells.
func (m *Model) HabitableOfAccessible() []int { return m.habOfAcc }
