// Package landscape provides the spatial grid the simulation runs on: cell
// coordinates, cell area, accessibility and habitability masks, and the
// index mapping between full-grid cells and compact population-state rows.
//
// The grid is a read-only coordinate and distance oracle. It carries no
// raster persistence or rendering concerns.
package landscape

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument indicates malformed grid inputs (mask/coordinate length
// mismatches, out-of-range cell indices, habitable cells outside the
// accessible set).
var ErrInvalidArgument = errors.New("landscape: invalid argument")

// Grid is an ordered set of cells with 2D coordinates and a uniform
// resolution. A subset of cells is accessible (migrants may arrive there,
// including non-habitable sinks such as open water) and a subset of the
// accessible cells is habitable (may hold population counts).
//
// Invariant: habitable ⊆ accessible.
type Grid struct {
	xs, ys     []float64
	resolution float64

	accessible []bool
	habitable  []bool

	// Compact index mappings. habRow maps cell -> row in the population
	// state matrix (-1 for non-habitable cells); habCells is its inverse.
	// accOrd/accCells do the same for the accessible ordering used as
	// migration-matrix destination columns.
	habRow   []int
	habCells []int
	accOrd   []int
	accCells []int
}

// New creates a grid from per-cell center coordinates, a cell resolution
// (edge length), and accessibility/habitability masks. A nil accessible mask
// means every cell is accessible; a nil habitable mask means every
// accessible cell is habitable.
func New(xs, ys []float64, resolution float64, accessible, habitable []bool) (*Grid, error) {
	n := len(xs)
	if len(ys) != n {
		return nil, fmt.Errorf("%w: coordinate lengths differ (%d x, %d y)", ErrInvalidArgument, n, len(ys))
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution must be positive, got %v", ErrInvalidArgument, resolution)
	}
	if accessible == nil {
		accessible = make([]bool, n)
		for i := range accessible {
			accessible[i] = true
		}
	}
	if len(accessible) != n {
		return nil, fmt.Errorf("%w: accessible mask has %d entries, want %d", ErrInvalidArgument, len(accessible), n)
	}
	if habitable == nil {
		habitable = append([]bool(nil), accessible...)
	}
	if len(habitable) != n {
		return nil, fmt.Errorf("%w: habitable mask has %d entries, want %d", ErrInvalidArgument, len(habitable), n)
	}
	for i := range habitable {
		if habitable[i] && !accessible[i] {
			return nil, fmt.Errorf("%w: cell %d habitable but not accessible", ErrInvalidArgument, i)
		}
	}

	g := &Grid{
		xs:         append([]float64(nil), xs...),
		ys:         append([]float64(nil), ys...),
		resolution: resolution,
		accessible: append([]bool(nil), accessible...),
		habitable:  append([]bool(nil), habitable...),
		habRow:     make([]int, n),
		accOrd:     make([]int, n),
	}
	for i := 0; i < n; i++ {
		g.habRow[i] = -1
		g.accOrd[i] = -1
		if accessible[i] {
			g.accOrd[i] = len(g.accCells)
			g.accCells = append(g.accCells, i)
		}
		if habitable[i] {
			g.habRow[i] = len(g.habCells)
			g.habCells = append(g.habCells, i)
		}
	}
	return g, nil
}

// NewRect creates a fully habitable width×height grid with cell centers on a
// regular lattice spaced by resolution.
func NewRect(width, height int, resolution float64) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions must be positive, got %dx%d", ErrInvalidArgument, width, height)
	}
	n := width * height
	xs := make([]float64, n)
	ys := make([]float64, n)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			i := r*width + c
			xs[i] = (float64(c) + 0.5) * resolution
			ys[i] = (float64(r) + 0.5) * resolution
		}
	}
	return New(xs, ys, resolution, nil, nil)
}

// NumCells returns the total cell count.
func (g *Grid) NumCells() int { return len(g.xs) }

// NumHabitable returns the number of habitable cells (population-state rows).
func (g *Grid) NumHabitable() int { return len(g.habCells) }

// NumAccessible returns the number of accessible cells.
func (g *Grid) NumAccessible() int { return len(g.accCells) }

// Resolution returns the cell edge length.
func (g *Grid) Resolution() float64 { return g.resolution }

// Area returns the area of a single cell.
func (g *Grid) Area() float64 { return g.resolution * g.resolution }

// Coord returns the center coordinates of cell i.
func (g *Grid) Coord(i int) (x, y float64) { return g.xs[i], g.ys[i] }

// Distance returns the Euclidean distance between the centers of cells i and j.
func (g *Grid) Distance(i, j int) float64 {
	dx := g.xs[i] - g.xs[j]
	dy := g.ys[i] - g.ys[j]
	return math.Hypot(dx, dy)
}

// Accessible reports whether cell i is accessible.
func (g *Grid) Accessible(i int) bool { return g.accessible[i] }

// Habitable reports whether cell i is habitable.
func (g *Grid) Habitable(i int) bool { return g.habitable[i] }

// HabitableCells returns the habitable cell indices in row order.
func (g *Grid) HabitableCells() []int { return append([]int(nil), g.habCells...) }

// AccessibleCells returns the accessible cell indices in ordinal order.
func (g *Grid) AccessibleCells() []int { return append([]int(nil), g.accCells...) }

// RowOf returns the compact population-state row for cell i, or -1 if the
// cell is not habitable.
func (g *Grid) RowOf(i int) int { return g.habRow[i] }

// CellOfRow returns the cell index backing population-state row r.
func (g *Grid) CellOfRow(r int) int { return g.habCells[r] }

// AccessibleOrd returns the accessible ordinal of cell i, or -1 if the cell
// is not accessible.
func (g *Grid) AccessibleOrd(i int) int { return g.accOrd[i] }

// CellOfAccessible returns the cell index backing accessible ordinal k.
func (g *Grid) CellOfAccessible(k int) int { return g.accCells[k] }

// WithinRadius returns the cells whose centers lie within radius of cell i's
// center, including i itself. Order follows cell index order.
func (g *Grid) WithinRadius(i int, radius float64) []int {
	var out []int
	for j := range g.xs {
		if g.Distance(i, j) <= radius {
			out = append(out, j)
		}
	}
	return out
}

// Equal reports whether two grids have identical coordinates, resolution and
// masks. Used to decide whether cached migration matrices can be reused.
func (g *Grid) Equal(o *Grid) bool {
	if o == nil || len(g.xs) != len(o.xs) || g.resolution != o.resolution {
		return false
	}
	for i := range g.xs {
		if g.xs[i] != o.xs[i] || g.ys[i] != o.ys[i] ||
			g.accessible[i] != o.accessible[i] || g.habitable[i] != o.habitable[i] {
			return false
		}
	}
	return true
}
