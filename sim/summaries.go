package sim

import "gonum.org/v1/gonum/mat"

// TotalSummary sums the whole state matrix.
func TotalSummary() Summary {
	return func(n *mat.Dense) float64 { return mat.Sum(n) }
}

// GenotypeTotalSummary sums one genotype column.
func GenotypeTotalSummary(g int) Summary {
	return func(n *mat.Dense) float64 {
		rows, _ := n.Dims()
		total := 0.0
		for i := 0; i < rows; i++ {
			total += n.At(i, g)
		}
		return total
	}
}

// ExtinctBelow returns a stop predicate that ends the run once the total
// population falls under threshold.
func ExtinctBelow(threshold float64) StopPredicate {
	return func(n *mat.Dense) bool { return mat.Sum(n) < threshold }
}
