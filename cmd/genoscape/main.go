// Package main runs a spatial population-genetics scenario: forward
// simulation over a landscape grid, optional backward lineage tracing, and
// CSV output of summaries, snapshots and trajectories.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/efwall/genoscape/config"
	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/genetics"
	"github.com/efwall/genoscape/lineage"
	"github.com/efwall/genoscape/population"
	"github.com/efwall/genoscape/sim"
	"github.com/efwall/genoscape/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Scenario YAML file (empty = embedded defaults)")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	seed := flag.Uint64("seed", 0, "Random seed override (0 = use config)")
	generations := flag.Int("generations", 0, "Generation count override (0 = use config)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	if *generations != 0 {
		cfg.Run.Generations = *generations
	}

	pop, model, err := cfg.BuildScenario()
	if err != nil {
		log.Fatalf("failed to build scenario: %v", err)
	}
	runCfg := cfg.BuildRunConfig(pop.Genotypes)

	res, err := sim.Simulate(pop, model, runCfg)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	om, err := telemetry.NewOutputManager(cfg.Output.Dir)
	if err != nil {
		log.Fatalf("failed to initialize output: %v", err)
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		log.Fatalf("failed to write config: %v", err)
	}
	if err := om.WriteSummaries(summaryRecords(res)); err != nil {
		log.Fatalf("failed to write summaries: %v", err)
	}
	if err := om.WriteSnapshots(snapshotRecords(res, pop)); err != nil {
		log.Fatalf("failed to write snapshots: %v", err)
	}

	if cfg.Lineages.Count > 0 {
		records, err := traceLineages(cfg, res, pop, model, runCfg)
		if err != nil {
			log.Fatalf("lineage tracing failed: %v", err)
		}
		if err := om.WriteLineages(records); err != nil {
			log.Fatalf("failed to write lineages: %v", err)
		}
	}

	final := 0.0
	if series := res.Summaries["total"]; len(series) > 0 {
		final = series[len(series)-1]
	}
	log.Printf("finished %d generations, final population %.2f, stopped=%v", len(res.SummaryTimes), final, res.Stopped)
	if om.Dir() != "" {
		log.Printf("output written to %s", om.Dir())
	}
}

func summaryRecords(res *sim.Result) []telemetry.SummaryRecord {
	names := make([]string, 0, len(res.Summaries))
	for name := range res.Summaries {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []telemetry.SummaryRecord
	for k, t := range res.SummaryTimes {
		for _, name := range names {
			out = append(out, telemetry.SummaryRecord{Generation: t, Name: name, Value: res.Summaries[name][k]})
		}
	}
	return out
}

func snapshotRecords(res *sim.Result, pop *population.Population) []telemetry.SnapshotRecord {
	var out []telemetry.SnapshotRecord
	for k, t := range res.Times {
		n := res.Snapshots[k]
		rows, cols := n.Dims()
		for r := 0; r < rows; r++ {
			for g := 0; g < cols; g++ {
				if v := n.At(r, g); v != 0 {
					out = append(out, telemetry.SnapshotRecord{
						Generation: t,
						Cell:       pop.Grid.CellOfRow(r),
						Genotype:   pop.Genotypes.Label(g),
						Count:      v,
					})
				}
			}
		}
	}
	return out
}

func traceLineages(cfg *config.Config, res *sim.Result, pop *population.Population, model *demography.Model, runCfg sim.RunConfig) ([]telemetry.LineageRecord, error) {
	if res.History == nil || res.History.Steps() == 0 {
		return nil, fmt.Errorf("no retained history to trace")
	}
	row := pop.Grid.RowOf(cfg.Lineages.Cell)
	if row < 0 {
		return nil, fmt.Errorf("lineage cell %d is not habitable", cfg.Lineages.Cell)
	}
	g, ok := pop.Genotypes.Index(cfg.Lineages.Genotype)
	if !ok {
		return nil, fmt.Errorf("unknown lineage genotype %q", cfg.Lineages.Genotype)
	}

	lineages := make([]lineage.Lineage, cfg.Lineages.Count)
	for i := range lineages {
		lineages[i] = lineage.Lineage{Row: row, Genotype: g}
	}
	trajectories, err := lineage.Trace(lineages, res.History, model, pop.Grid, genetics.BiallelicAlleleCounts(), runCfg.Src)
	if err != nil {
		return nil, err
	}

	var out []telemetry.LineageRecord
	for i, traj := range trajectories {
		if traj.Err != nil {
			log.Printf("lineage %d aborted: %v", i, traj.Err)
		}
		for _, p := range traj.Points {
			out = append(out, telemetry.LineageRecord{
				Lineage:  i,
				Time:     p.Time,
				Cell:     pop.Grid.CellOfRow(p.Row),
				Genotype: pop.Genotypes.Label(p.Genotype),
			})
		}
	}
	return out, nil
}
