package dispersal

import (
	"fmt"
	"math"

	"github.com/efwall/genoscape/landscape"
)

// Triple is one explicit sparse entry: the dispersal weight from source
// ordinal From to destination ordinal To. Ordinals index the matrix's from
// and to cell sets, not the full grid.
type Triple struct {
	From int
	To   int
	W    float64
}

// Matrix is a sparse non-negative migration matrix between a source cell set
// and a destination cell set. Entries are stored as ordered (from, to,
// weight) triples with row and column indexes for forward application and
// backward (column-weighted) sampling. Immutable after construction; safe to
// share across simulation runs on the same grid.
type Matrix struct {
	fromCells  []int
	toCells    []int
	resolution float64

	triples  []Triple
	rowStart []int   // len NumFrom+1, offsets into triples
	cols     [][]int // per destination ordinal, indices into triples
}

// Options configures matrix construction.
type Options struct {
	// Kernel is the dispersal kernel over sigma-scaled distance.
	Kernel Kernel
	// Sigma is the dispersal scale.
	Sigma float64
	// Radius truncates dispersal: destinations farther than Radius from the
	// source contribute nothing.
	Radius float64
	// MinWeight drops entries at or below this value for sparsity.
	MinWeight float64
	// Normalize, when positive, rescales each source row's surviving
	// weights to sum to this constant. Rows with no reachable accessible
	// destination stay zero; that is a valid outcome, not an error.
	Normalize float64
}

// Build constructs a migration matrix on grid from the source cell set
// `from` to the destination cell set `to` (nil means the source set), with
// `accessible` masking destinations (nil means the grid's own accessibility
// mask). The self entry (from == to) is included when within radius.
func Build(grid *landscape.Grid, from, to []int, accessible []bool, opts Options) (*Matrix, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidArgument)
	}
	if opts.Kernel == nil {
		return nil, fmt.Errorf("%w: nil kernel", ErrInvalidArgument)
	}
	if opts.Sigma <= 0 {
		return nil, fmt.Errorf("%w: sigma must be positive, got %v", ErrInvalidArgument, opts.Sigma)
	}
	if from == nil {
		return nil, fmt.Errorf("%w: from must be a concrete cell index set", ErrInvalidArgument)
	}
	if err := checkCells(grid, from); err != nil {
		return nil, err
	}
	if to == nil {
		to = from
	}
	if err := checkCells(grid, to); err != nil {
		return nil, err
	}
	if accessible == nil {
		accessible = make([]bool, len(to))
		for k, cell := range to {
			accessible[k] = grid.Accessible(cell)
		}
	}
	if len(accessible) != len(to) {
		return nil, fmt.Errorf("%w: accessible mask has %d entries, want %d destinations", ErrInvalidArgument, len(accessible), len(to))
	}

	m := &Matrix{
		fromCells:  append([]int(nil), from...),
		toCells:    append([]int(nil), to...),
		resolution: grid.Resolution(),
		rowStart:   make([]int, len(from)+1),
		cols:       make([][]int, len(to)),
	}

	scale := grid.Area() / (opts.Sigma * opts.Sigma)
	for fi, src := range from {
		rowBegin := len(m.triples)
		for ti, dst := range to {
			if !accessible[ti] {
				continue
			}
			d := grid.Distance(src, dst)
			if d > opts.Radius {
				continue
			}
			w := opts.Kernel(d/opts.Sigma) * scale
			if w <= opts.MinWeight {
				continue
			}
			m.triples = append(m.triples, Triple{From: fi, To: ti, W: w})
		}
		if opts.Normalize > 0 {
			sum := 0.0
			for _, t := range m.triples[rowBegin:] {
				sum += t.W
			}
			if sum > 0 {
				f := opts.Normalize / sum
				for k := rowBegin; k < len(m.triples); k++ {
					m.triples[k].W *= f
				}
			}
		}
		m.rowStart[fi+1] = len(m.triples)
	}
	for k, t := range m.triples {
		m.cols[t.To] = append(m.cols[t.To], k)
	}
	return m, nil
}

func checkCells(grid *landscape.Grid, cells []int) error {
	for _, c := range cells {
		if c < 0 || c >= grid.NumCells() {
			return fmt.Errorf("%w: cell index %d out of range [0,%d)", ErrInvalidArgument, c, grid.NumCells())
		}
	}
	return nil
}

// NumFrom returns the source set size.
func (m *Matrix) NumFrom() int { return len(m.fromCells) }

// NumTo returns the destination set size.
func (m *Matrix) NumTo() int { return len(m.toCells) }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.triples) }

// Resolution returns the resolution of the grid the matrix was built on.
func (m *Matrix) Resolution() float64 { return m.resolution }

// FromCells returns the source cell indices per source ordinal.
func (m *Matrix) FromCells() []int { return append([]int(nil), m.fromCells...) }

// ToCells returns the destination cell indices per destination ordinal.
func (m *Matrix) ToCells() []int { return append([]int(nil), m.toCells...) }

// At returns the weight from source ordinal fi to destination ordinal ti,
// zero when no entry is stored.
func (m *Matrix) At(fi, ti int) float64 {
	for _, t := range m.triples[m.rowStart[fi]:m.rowStart[fi+1]] {
		if t.To == ti {
			return t.W
		}
	}
	return 0
}

// RowSum returns the total outgoing weight of source ordinal fi.
func (m *Matrix) RowSum(fi int) float64 {
	sum := 0.0
	for _, t := range m.triples[m.rowStart[fi]:m.rowStart[fi+1]] {
		sum += t.W
	}
	return sum
}

// Each calls fn for every stored entry in row-major order.
func (m *Matrix) Each(fn func(fromOrd, toOrd int, w float64)) {
	for _, t := range m.triples {
		fn(t.From, t.To, t.W)
	}
}

// EachInCol calls fn for every stored entry with destination ordinal ti, in
// source order. This is the backward-sampling access path; iteration order
// is deterministic.
func (m *Matrix) EachInCol(ti int, fn func(fromOrd int, w float64)) {
	for _, k := range m.cols[ti] {
		fn(m.triples[k].From, m.triples[k].W)
	}
}

// Subset restricts the matrix to new source and destination cell sets, which
// must be subsets of the original sets on a grid with the same resolution.
// Subsetting to the full original sets reproduces the matrix exactly.
func (m *Matrix) Subset(grid *landscape.Grid, from, to []int) (*Matrix, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidArgument)
	}
	if grid.Resolution() != m.resolution {
		return nil, fmt.Errorf("%w: matrix built at resolution %v, subset grid has %v", ErrResolutionMismatch, m.resolution, grid.Resolution())
	}
	if from == nil {
		return nil, fmt.Errorf("%w: from must be a concrete cell index set", ErrInvalidArgument)
	}
	if to == nil {
		to = from
	}
	fromOrd, err := ordinalsOf(m.fromCells, from, "source")
	if err != nil {
		return nil, err
	}
	toOrd, err := ordinalsOf(m.toCells, to, "destination")
	if err != nil {
		return nil, err
	}
	toNew := make(map[int]int, len(toOrd)) // old destination ordinal -> new
	for ni, oi := range toOrd {
		toNew[oi] = ni
	}

	s := &Matrix{
		fromCells:  append([]int(nil), from...),
		toCells:    append([]int(nil), to...),
		resolution: m.resolution,
		rowStart:   make([]int, len(from)+1),
		cols:       make([][]int, len(to)),
	}
	for ni, oi := range fromOrd {
		for _, t := range m.triples[m.rowStart[oi]:m.rowStart[oi+1]] {
			if nt, ok := toNew[t.To]; ok {
				s.triples = append(s.triples, Triple{From: ni, To: nt, W: t.W})
			}
		}
		s.rowStart[ni+1] = len(s.triples)
	}
	for k, t := range s.triples {
		s.cols[t.To] = append(s.cols[t.To], k)
	}
	return s, nil
}

func ordinalsOf(cells, want []int, kind string) ([]int, error) {
	ord := make(map[int]int, len(cells))
	for i, c := range cells {
		ord[c] = i
	}
	out := make([]int, len(want))
	for i, c := range want {
		o, ok := ord[c]
		if !ok {
			return nil, fmt.Errorf("%w: cell %d is not in the matrix %s set", ErrInvalidArgument, c, kind)
		}
		out[i] = o
	}
	return out, nil
}

// Equal reports entrywise equality within tol, including cell sets.
func (m *Matrix) Equal(o *Matrix, tol float64) bool {
	if o == nil || len(m.fromCells) != len(o.fromCells) || len(m.toCells) != len(o.toCells) || len(m.triples) != len(o.triples) {
		return false
	}
	for i := range m.fromCells {
		if m.fromCells[i] != o.fromCells[i] {
			return false
		}
	}
	for i := range m.toCells {
		if m.toCells[i] != o.toCells[i] {
			return false
		}
	}
	for i := range m.triples {
		a, b := m.triples[i], o.triples[i]
		if a.From != b.From || a.To != b.To || math.Abs(a.W-b.W) > tol {
			return false
		}
	}
	return true
}
