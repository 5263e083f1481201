package landscape

import (
	"errors"
	"math"
	"testing"
)

func TestNewRect(t *testing.T) {
	g, err := NewRect(3, 2, 1.0)
	if err != nil {
		t.Fatalf("NewRect failed: %v", err)
	}
	if g.NumCells() != 6 {
		t.Errorf("NumCells = %d, want 6", g.NumCells())
	}
	if g.NumHabitable() != 6 || g.NumAccessible() != 6 {
		t.Errorf("habitable/accessible = %d/%d, want 6/6", g.NumHabitable(), g.NumAccessible())
	}
	if g.Area() != 1.0 {
		t.Errorf("Area = %v, want 1", g.Area())
	}

	x, y := g.Coord(0)
	if x != 0.5 || y != 0.5 {
		t.Errorf("Coord(0) = (%v,%v), want (0.5,0.5)", x, y)
	}
	if d := g.Distance(0, 1); math.Abs(d-1.0) > 1e-12 {
		t.Errorf("Distance(0,1) = %v, want 1", d)
	}
	if d := g.Distance(0, 4); math.Abs(d-math.Sqrt2) > 1e-12 {
		t.Errorf("Distance(0,4) = %v, want sqrt(2)", d)
	}
}

func TestNewRectInvalid(t *testing.T) {
	if _, err := NewRect(0, 3, 1.0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero width: got %v, want ErrInvalidArgument", err)
	}
}

func TestNewMasks(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 0, 0}

	t.Run("habitable subset of accessible", func(t *testing.T) {
		g, err := New(xs, ys, 1.0, []bool{true, true, true}, []bool{true, false, true})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if g.NumHabitable() != 2 || g.NumAccessible() != 3 {
			t.Errorf("habitable/accessible = %d/%d, want 2/3", g.NumHabitable(), g.NumAccessible())
		}
	})

	t.Run("habitable outside accessible", func(t *testing.T) {
		_, err := New(xs, ys, 1.0, []bool{true, false, true}, []bool{true, true, true})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("got %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("mask length mismatch", func(t *testing.T) {
		_, err := New(xs, ys, 1.0, []bool{true}, nil)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("got %v, want ErrInvalidArgument", err)
		}
	})
}

func TestIndexMapping(t *testing.T) {
	// Middle cell is an accessible sink (open water): no state row.
	g, err := New(
		[]float64{0, 1, 2}, []float64{0, 0, 0}, 1.0,
		[]bool{true, true, true},
		[]bool{true, false, true},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if r := g.RowOf(1); r != -1 {
		t.Errorf("RowOf(sink) = %d, want -1", r)
	}
	for _, cell := range g.HabitableCells() {
		row := g.RowOf(cell)
		if row < 0 {
			t.Fatalf("habitable cell %d has no row", cell)
		}
		if back := g.CellOfRow(row); back != cell {
			t.Errorf("CellOfRow(RowOf(%d)) = %d", cell, back)
		}
	}
	for ord, cell := range g.AccessibleCells() {
		if g.AccessibleOrd(cell) != ord {
			t.Errorf("AccessibleOrd(%d) = %d, want %d", cell, g.AccessibleOrd(cell), ord)
		}
	}
}

func TestWithinRadius(t *testing.T) {
	g, err := NewRect(3, 3, 1.0)
	if err != nil {
		t.Fatalf("NewRect failed: %v", err)
	}
	// Center cell: orthogonal neighbors at distance 1, diagonals at sqrt(2).
	got := g.WithinRadius(4, 1.0)
	want := []int{1, 3, 4, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("WithinRadius = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("WithinRadius = %v, want %v", got, want)
			break
		}
	}
}

func TestGridEqual(t *testing.T) {
	a, _ := NewRect(3, 3, 1.0)
	b, _ := NewRect(3, 3, 1.0)
	c, _ := NewRect(3, 3, 2.0)

	if !a.Equal(b) {
		t.Error("identical grids not Equal")
	}
	if a.Equal(c) {
		t.Error("grids with different resolution Equal")
	}
	if a.Equal(nil) {
		t.Error("grid Equal(nil)")
	}
}
