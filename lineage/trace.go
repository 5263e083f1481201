package lineage

import (
	"fmt"
	"math/rand/v2"

	"github.com/efwall/genoscape/demography"
	"github.com/efwall/genoscape/landscape"
	"github.com/efwall/genoscape/sim"
)

// Point is one visited (time, location, genotype) along a trajectory.
type Point struct {
	Time     int
	Row      int
	Genotype int
}

// Trajectory is one lineage's ancestry, ordered from the latest generation
// backward. Err is set when a sampling step failed; the points gathered up
// to that step are kept.
type Trajectory struct {
	Points []Point
	Err    error
}

// Trace walks a retained forward history in reverse chronological order,
// threading each lineage's (location, genotype) through successive backward
// steps. Lineages are independent; a failed lineage keeps its partial
// trajectory while the rest continue.
func Trace(lineages []Lineage, hist *sim.History, m *demography.Model, grid *landscape.Grid, alleles []int, src rand.Source) ([]Trajectory, error) {
	if hist == nil || hist.Steps() == 0 {
		return nil, fmt.Errorf("%w: empty history", ErrConfiguration)
	}
	if len(hist.States) != hist.Steps()+1 {
		return nil, fmt.Errorf("%w: history has %d states for %d steps", ErrConfiguration, len(hist.States), hist.Steps())
	}

	out := make([]Trajectory, len(lineages))
	cur := append([]Lineage(nil), lineages...)
	endTime := hist.Start + hist.Steps()
	for i, l := range cur {
		out[i].Points = []Point{{Time: endTime, Row: l.Row, Genotype: l.Genotype}}
	}

	for k := hist.Steps() - 1; k >= 0; k-- {
		active := false
		for i := range out {
			if out[i].Err != nil {
				continue
			}
			active = true
			parents, errs, err := Step(cur[i:i+1], hist.States[k], hist.Breakdowns[k], m, grid, alleles, src)
			if err != nil {
				return nil, err
			}
			if errs[0] != nil {
				out[i].Err = errs[0]
				continue
			}
			cur[i] = parents[0]
			out[i].Points = append(out[i].Points, Point{Time: hist.Start + k, Row: parents[0].Row, Genotype: parents[0].Genotype})
		}
		if !active {
			break
		}
	}
	return out, nil
}
