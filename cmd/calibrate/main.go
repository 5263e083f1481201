// Package main fits the seed-dispersal scale of a scenario to an observed
// total-population trajectory using Nelder-Mead optimization over
// deterministic forward runs.
package main

import (
	"flag"
	"log"
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/efwall/genoscape/config"
	"github.com/efwall/genoscape/sim"
)

// TargetRecord is one observed point of the trajectory being fitted.
type TargetRecord struct {
	Generation int     `csv:"generation"`
	Total      float64 `csv:"total"`
}

func main() {
	configPath := flag.String("config", "", "Base scenario YAML file (empty = embedded defaults)")
	targetPath := flag.String("target", "", "CSV of observed generation,total values")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of objective evaluations")
	flag.Parse()

	if *targetPath == "" {
		log.Fatal("--target is required")
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()
	targets, err := loadTargets(*targetPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	// Run deterministically out to the last observed generation.
	cfg.Run.Expected = true
	cfg.Run.RetainHistory = false
	cfg.Lineages.Count = 0
	for _, t := range targets {
		if t.Generation > cfg.Run.Generations {
			cfg.Run.Generations = t.Generation
		}
	}

	// Optimize log-sigma so the search space stays positive.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return objective(cfg, targets, math.Exp(x[0]))
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}

	initX := []float64{math.Log(cfg.Dispersal.Seed.Sigma)}
	result, err := optimize.Minimize(problem, initX, settings, &optimize.NelderMead{})
	if err != nil {
		log.Fatalf("optimization failed: %v", err)
	}

	fitted := math.Exp(result.X[0])
	log.Printf("fitted seed sigma %.4f (sse %.4f, %d evaluations)", fitted, result.F, result.Stats.FuncEvaluations)
}

func loadTargets(path string) ([]TargetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []TargetRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// objective is the sum of squared errors between simulated and observed
// total population at the observed generations.
func objective(base *config.Config, targets []TargetRecord, sigma float64) float64 {
	cfg := *base
	cfg.Dispersal.Seed.Sigma = sigma

	pop, model, err := cfg.BuildScenario()
	if err != nil {
		return math.Inf(1)
	}
	runCfg := cfg.BuildRunConfig(pop.Genotypes)

	res, err := sim.Simulate(pop, model, runCfg)
	if err != nil {
		return math.Inf(1)
	}

	totalAt := make(map[int]float64, len(res.SummaryTimes))
	for k, t := range res.SummaryTimes {
		totalAt[t] = res.Summaries["total"][k]
	}
	sse := 0.0
	for _, target := range targets {
		d := totalAt[target.Generation] - target.Total
		sse += d * d
	}
	return sse
}
