package demography

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/efwall/genoscape/dispersal"
	"github.com/efwall/genoscape/genetics"
	"github.com/efwall/genoscape/landscape"
	"github.com/efwall/genoscape/population"
)

func testModel(t *testing.T) (*Model, *population.Population) {
	t.Helper()
	grid, err := landscape.NewRect(3, 3, 1.0)
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
	spec := DispersalSpec{Kernel: dispersal.Gaussian, Sigma: 1.0, Radius: 3.0, Normalize: 1.0}
	m := &Model{
		Genotypes:   genotypes,
		Tensor:      tensor,
		Seeding:     Constant(1.0),
		Germination: Constant(0.5),
		Survival:    Constant(0.9),
		Fecundity:   1.0,
		Pollen:      spec,
		Seed:        spec,
	}
	return m, pop
}

func TestRateResolve(t *testing.T) {
	n := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	t.Run("constant", func(t *testing.T) {
		out, err := Constant(0.25).Resolve(n, nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if out.At(1, 2) != 0.25 {
			t.Errorf("At(1,2) = %v, want 0.25", out.At(1, 2))
		}
	})

	t.Run("per genotype", func(t *testing.T) {
		out, err := PerGenotype(0.1, 0.2, 0.3).Resolve(n, nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if out.At(0, 0) != 0.1 || out.At(1, 2) != 0.3 {
			t.Errorf("broadcast wrong: %v %v", out.At(0, 0), out.At(1, 2))
		}
	})

	t.Run("per genotype wrong length", func(t *testing.T) {
		if _, err := PerGenotype(0.1, 0.2).Resolve(n, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("got %v, want ErrConfiguration", err)
		}
	})

	t.Run("computed", func(t *testing.T) {
		r := Computed(func(n *mat.Dense, cov Covariates) *mat.Dense {
			rows, cols := n.Dims()
			out := mat.NewDense(rows, cols, nil)
			out.Scale(cov["scale"], n)
			return out
		})
		out, err := r.Resolve(n, Covariates{"scale": 2})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if out.At(1, 1) != 10 {
			t.Errorf("At(1,1) = %v, want 10", out.At(1, 1))
		}
	})

	t.Run("computed wrong shape", func(t *testing.T) {
		r := Computed(func(n *mat.Dense, cov Covariates) *mat.Dense {
			return mat.NewDense(1, 1, nil)
		})
		if _, err := r.Resolve(n, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("got %v, want ErrConfiguration", err)
		}
	})

	t.Run("unset", func(t *testing.T) {
		var r Rate
		if _, err := r.Resolve(n, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("got %v, want ErrConfiguration", err)
		}
	})
}

func TestCapacityGermination(t *testing.T) {
	// One cell holding K individuals germinates at half the base rate.
	n := mat.NewDense(1, 2, []float64{6, 4})
	r := CapacityGermination(0.8)
	out, err := r.Resolve(n, Covariates{"capacity": 10})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := out.At(0, 0); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("rate at capacity = %v, want 0.4", got)
	}

	// Without a capacity covariate the base rate applies.
	out, err = r.Resolve(n, Covariates{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := out.At(0, 0); got != 0.8 {
		t.Errorf("rate without capacity = %v, want 0.8", got)
	}
}

func TestSetup(t *testing.T) {
	m, pop := testModel(t)
	if m.IsSetup() {
		t.Fatal("model set up before Setup")
	}
	if err := m.Setup(pop); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !m.IsSetup() {
		t.Fatal("model not set up after Setup")
	}
	if m.PollenMatrix().NumFrom() != pop.Grid.NumHabitable() {
		t.Errorf("pollen matrix has %d rows, want %d", m.PollenMatrix().NumFrom(), pop.Grid.NumHabitable())
	}
	if m.SeedMatrix().NumTo() != pop.Grid.NumAccessible() {
		t.Errorf("seed matrix has %d cols, want %d", m.SeedMatrix().NumTo(), pop.Grid.NumAccessible())
	}
}

func TestSetupIdempotent(t *testing.T) {
	m, pop := testModel(t)
	if err := m.Setup(pop); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	first := m.SeedMatrix()

	// Same grid content in a distinct population: matrices must be reused.
	if err := m.Setup(pop.Clone()); err != nil {
		t.Fatalf("second Setup failed: %v", err)
	}
	if !first.Equal(m.SeedMatrix(), 0) {
		t.Error("repeated Setup changed the seed migration matrix")
	}
}

func TestSetupGenotypeMismatch(t *testing.T) {
	m, _ := testModel(t)
	grid, _ := landscape.NewRect(3, 3, 1.0)
	other, _ := genetics.NewGenotypes("bb", "bB", "BB")
	pop, err := population.New(grid, other)
	if err != nil {
		t.Fatalf("population.New failed: %v", err)
	}
	if err := m.Setup(pop); !errors.Is(err, ErrConfiguration) {
		t.Errorf("got %v, want ErrConfiguration", err)
	}
}

func TestValidateIncompleteModel(t *testing.T) {
	m, _ := testModel(t)
	m.Survival = Rate{}
	if err := m.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing rate: got %v, want ErrConfiguration", err)
	}

	m2, _ := testModel(t)
	m2.Tensor, _ = genetics.NewMatingTensor(1, []float64{1})
	if err := m2.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("tensor mismatch: got %v, want ErrConfiguration", err)
	}
}
