package config

import (
	"fmt"
	"math/rand/v2"

	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/dispersal"
	"github.com/efwall/genoscape/genetics"
	"github.com/efwall/genoscape/landscape"
	"github.com/efwall/genoscape/population"
	"github.com/efwall/genoscape/sim"
)

// BuildScenario turns a validated config into a population and a demographic
// model ready for simulation. The built-in Mendelian tensor is used, so the
// scenario must declare exactly three genotypes; other genotype counts need
// a programmatically supplied tensor.
func (c *Config) BuildScenario() (*population.Population, *demography.Model, error) {
	grid, err := landscape.NewRect(c.Grid.Width, c.Grid.Height, c.Grid.Resolution)
	if err != nil {
		return nil, nil, err
	}
	genotypes, err := genetics.NewGenotypes(c.Genotypes...)
	if err != nil {
		return nil, nil, err
	}
	tensor, err := genetics.NewMendelianTensor(genotypes)
	if err != nil {
		return nil, nil, err
	}
	pop, err := population.New(grid, genotypes)
	if err != nil {
		return nil, nil, err
	}
	for _, init := range c.Init {
		if err := pop.SetCount(init.Cell, init.Genotype, init.Count); err != nil {
			return nil, nil, fmt.Errorf("applying initial counts: %w", err)
		}
	}

	pollen, err := c.Dispersal.Pollen.spec()
	if err != nil {
		return nil, nil, fmt.Errorf("pollen dispersal: %w", err)
	}
	seed, err := c.Dispersal.Seed.spec()
	if err != nil {
		return nil, nil, fmt.Errorf("seed dispersal: %w", err)
	}

	model := &demography.Model{
		Genotypes:   genotypes,
		Tensor:      tensor,
		Seeding:     c.Rates.Seeding.rate(),
		Germination: c.Rates.Germination.germinationRate(),
		Survival:    c.Rates.Survival.rate(),
		Fecundity:   c.Rates.Fecundity,
		Pollen:      pollen,
		Seed:        seed,
	}
	if err := model.Validate(); err != nil {
		return nil, nil, err
	}
	return pop, model, nil
}

// BuildRunConfig turns run control settings into a driver configuration with
// total and per-genotype population summaries.
func (c *Config) BuildRunConfig(genotypes genetics.Genotypes) sim.RunConfig {
	times := []int{0}
	for t := c.Run.SnapshotEvery; t <= c.Run.Generations; t += c.Run.SnapshotEvery {
		times = append(times, t)
	}
	if last := times[len(times)-1]; last != c.Run.Generations {
		times = append(times, c.Run.Generations)
	}

	summaries := map[string]sim.Summary{
		"total": sim.TotalSummary(),
	}
	for g := 0; g < genotypes.Len(); g++ {
		summaries["total_"+genotypes.Label(g)] = sim.GenotypeTotalSummary(g)
	}

	cov := demography.Covariates{}
	if c.Rates.Germination.Capacity > 0 {
		cov["capacity"] = c.Rates.Germination.Capacity
	}

	return sim.RunConfig{
		Times:         times,
		Covariates:    cov,
		Summaries:     summaries,
		RetainHistory: c.Run.RetainHistory || c.Lineages.Count > 0,
		Expected:      c.Run.Expected,
		Src:           rand.NewPCG(c.Run.Seed, c.Run.Seed^0x9e3779b97f4a7c15),
	}
}

func (r RateConfig) rate() demography.Rate {
	if len(r.PerGenotype) > 0 {
		return demography.PerGenotype(r.PerGenotype...)
	}
	return demography.Constant(*r.Constant)
}

func (r RateConfig) germinationRate() demography.Rate {
	if r.Capacity > 0 && r.Constant != nil {
		return demography.CapacityGermination(*r.Constant)
	}
	return r.rate()
}

func (k KernelConfig) spec() (demography.DispersalSpec, error) {
	kernel, err := dispersal.KernelByName(k.Kernel)
	if err != nil {
		return demography.DispersalSpec{}, err
	}
	return demography.DispersalSpec{
		Kernel:    kernel,
		Sigma:     k.Sigma,
		Radius:    k.Radius,
		MinWeight: k.MinWeight,
		Normalize: k.Normalize,
	}, nil
}
