package sim

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/dispersal"
	"github.com/efwall/genoscape/genetics"
	"github.com/efwall/genoscape/landscape"
	"github.com/efwall/genoscape/population"
)

// singleCellSetup builds a one-cell, one-genotype model with non-overlapping
// generations: every adult dies and is replaced by its own germinating seed,
// a stationary fixed point when all pathway rates are 1.
func singleCellSetup(t *testing.T) (*population.Population, *demography.Model) {
	t.Helper()
	grid, err := landscape.NewRect(1, 1, 1.0)
	if err != nil {
		t.Fatalf("NewRect failed: %v", err)
	}
	genotypes, err := genetics.NewGenotypes("A")
	if err != nil {
		t.Fatalf("NewGenotypes failed: %v", err)
	}
	tensor, err := genetics.NewMatingTensor(1, []float64{1})
	if err != nil {
		t.Fatalf("NewMatingTensor failed: %v", err)
	}
	pop, err := population.New(grid, genotypes)
	if err != nil {
		t.Fatalf("population.New failed: %v", err)
	}
	spec := demography.DispersalSpec{Kernel: dispersal.Gaussian, Sigma: 1.0, Radius: 1.0, Normalize: 1.0}
	m := &demography.Model{
		Genotypes:   genotypes,
		Tensor:      tensor,
		Seeding:     demography.Constant(1.0),
		Germination: demography.Constant(1.0),
		Survival:    demography.Constant(0.0),
		Fecundity:   1.0,
		Pollen:      spec,
		Seed:        spec,
	}
	if err := m.Setup(pop); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return pop, m
}

// mendelianSetup builds a 2x2 grid with three genotypes and every cell
// populated.
func mendelianSetup(t *testing.T, seeding, germination, survival float64) (*population.Population, *demography.Model) {
	t.Helper()
	grid, err := landscape.NewRect(2, 2, 1.0)
	if err != nil {
		t.Fatalf("NewRect failed: %v", err)
	}
	genotypes, err := genetics.NewGenotypes("aa", "aA", "AA")
	if err != nil {
		t.Fatalf("NewGenotypes failed: %v", err)
	}
	tensor, err := genetics.NewMendelianTensor(genotypes)
	if err != nil {
		t.Fatalf("NewMendelianTensor failed: %v", err)
	}
	pop, err := population.New(grid, genotypes)
	if err != nil {
		t.Fatalf("population.New failed: %v", err)
	}
	for _, cell := range pop.Grid.HabitableCells() {
		pop.SetCount(cell, "aa", 3)
		pop.SetCount(cell, "aA", 2)
		pop.SetCount(cell, "AA", 4)
	}
	spec := demography.DispersalSpec{Kernel: dispersal.Gaussian, Sigma: 1.0, Radius: 2.0, Normalize: 1.0}
	m := &demography.Model{
		Genotypes:   genotypes,
		Tensor:      tensor,
		Seeding:     demography.Constant(seeding),
		Germination: demography.Constant(germination),
		Survival:    demography.Constant(survival),
		Fecundity:   1.0,
		Pollen:      spec,
		Seed:        spec,
	}
	if err := m.Setup(pop); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return pop, m
}

func TestGenerationStationarySingleCell(t *testing.T) {
	pop, m := singleCellSetup(t)
	pop.SetCount(0, "A", 1)

	next, bd, err := Generation(pop, m, nil, true, nil)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if got := next.At(0, 0); math.Abs(got-1) > 1e-12 {
		t.Errorf("next = %v, want 1 (stationary)", got)
	}
	for name, want := range map[string]float64{
		"seeders": 1, "pollen": 1, "seed production": 1,
		"seeds dispersed": 1, "germination": 1, "death": 1,
	} {
		var got float64
		switch name {
		case "seeders":
			got = bd.Seeders.At(0, 0)
		case "pollen":
			got = bd.Pollen.At(0, 0)
		case "seed production":
			got = bd.SeedProduction.At(0, 0)
		case "seeds dispersed":
			got = bd.SeedsDispersed.At(0, 0)
		case "germination":
			got = bd.Germination.At(0, 0)
		case "death":
			got = bd.Death.At(0, 0)
		}
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestGenerationConservation(t *testing.T) {
	pop, m := mendelianSetup(t, 0.7, 0.4, 0.6)

	next, bd, err := Generation(pop, m, nil, true, nil)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	rows, cols := next.Dims()
	for i := 0; i < rows; i++ {
		for g := 0; g < cols; g++ {
			if next.At(i, g) < 0 {
				t.Errorf("negative count %v at (%d,%d)", next.At(i, g), i, g)
			}
		}
	}

	want := mat.Sum(pop.N) - mat.Sum(bd.Death) + mat.Sum(bd.Germination)
	if got := mat.Sum(next); math.Abs(got-want) > 1e-9 {
		t.Errorf("total next = %v, want %v", got, want)
	}
}

func TestGenerationPollenUsesFullN(t *testing.T) {
	// Zero seeding probability silences the seed pathway, but pollen flux
	// comes from all present individuals and keeps flowing.
	pop, m := mendelianSetup(t, 0.0, 0.5, 0.8)

	next, bd, err := Generation(pop, m, nil, true, nil)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if mat.Sum(bd.Seeders) != 0 {
		t.Errorf("seeders total = %v, want 0", mat.Sum(bd.Seeders))
	}
	if mat.Sum(bd.Pollen) <= 0 {
		t.Error("pollen flux vanished with zero seeding probability")
	}
	if mat.Sum(bd.SeedProduction) != 0 {
		t.Errorf("seed production total = %v, want 0", mat.Sum(bd.SeedProduction))
	}

	// With no germination, the update reduces to pure mortality.
	rows, cols := next.Dims()
	for i := 0; i < rows; i++ {
		for g := 0; g < cols; g++ {
			want := pop.N.At(i, g) * 0.8
			if math.Abs(next.At(i, g)-want) > 1e-9 {
				t.Errorf("next(%d,%d) = %v, want %v", i, g, next.At(i, g), want)
			}
		}
	}
}

func TestGenerationStochasticReproducible(t *testing.T) {
	pop, m := mendelianSetup(t, 0.9, 0.5, 0.7)

	a, _, err := Generation(pop, m, nil, false, rand.NewPCG(42, 1))
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	b, _, err := Generation(pop, m, nil, false, rand.NewPCG(42, 1))
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Error("same seed produced different stochastic transitions")
	}
}

func TestGenerationStochasticIntegerSamples(t *testing.T) {
	pop, m := mendelianSetup(t, 0.9, 0.5, 0.7)

	_, bd, err := Generation(pop, m, nil, false, rand.NewPCG(7, 7))
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	for name, q := range map[string]*mat.Dense{
		"seeders": bd.Seeders, "germination": bd.Germination, "death": bd.Death,
	} {
		rows, cols := q.Dims()
		for i := 0; i < rows; i++ {
			for g := 0; g < cols; g++ {
				if v := q.At(i, g); v != math.Trunc(v) || v < 0 {
					t.Errorf("%s(%d,%d) = %v, want a non-negative integer", name, i, g, v)
				}
			}
		}
	}
}

func TestGenerationErrors(t *testing.T) {
	t.Run("not set up", func(t *testing.T) {
		pop, m := mendelianSetup(t, 1, 1, 1)
		fresh := &demography.Model{
			Genotypes: m.Genotypes, Tensor: m.Tensor,
			Seeding: m.Seeding, Germination: m.Germination, Survival: m.Survival,
			Fecundity: m.Fecundity, Pollen: m.Pollen, Seed: m.Seed,
		}
		if _, _, err := Generation(pop, fresh, nil, true, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("got %v, want ErrConfiguration", err)
		}
	})

	t.Run("stochastic without source", func(t *testing.T) {
		pop, m := mendelianSetup(t, 1, 1, 1)
		if _, _, err := Generation(pop, m, nil, false, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("got %v, want ErrConfiguration", err)
		}
	})

	t.Run("negative state fails loudly", func(t *testing.T) {
		pop, m := mendelianSetup(t, 0, 0, 1)
		// A survival rate above one drives death negative-complement and
		// the next state below zero; the engine must refuse.
		m.Survival = demography.Constant(-0.5)
		if _, _, err := Generation(pop, m, nil, true, nil); !errors.Is(err, ErrNegativeState) {
			t.Errorf("got %v, want ErrNegativeState", err)
		}
	})
}
