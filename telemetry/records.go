// Package telemetry handles structured experiment output: CSV series of
// summary statistics, state snapshots and lineage trajectories, plus the
// resolved scenario configuration.
package telemetry

// SummaryRecord is one summary value at one generation.
type SummaryRecord struct {
	Generation int     `csv:"generation"`
	Name       string  `csv:"summary"`
	Value      float64 `csv:"value"`
}

// SnapshotRecord is one nonzero state entry of a retained snapshot.
type SnapshotRecord struct {
	Generation int     `csv:"generation"`
	Cell       int     `csv:"cell"`
	Genotype   string  `csv:"genotype"`
	Count      float64 `csv:"count"`
}

// LineageRecord is one visited point of a traced lineage, in backward
// (reverse chronological) order per lineage.
type LineageRecord struct {
	Lineage  int    `csv:"lineage"`
	Time     int    `csv:"time"`
	Cell     int    `csv:"cell"`
	Genotype string `csv:"genotype"`
}
