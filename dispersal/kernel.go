// Package dispersal builds sparse kernel-weighted migration matrices between
// grid locations. A matrix entry is kernel(distance/sigma) × cell-area / sigma²,
// truncated beyond a radius and thresholded for sparsity, optionally
// row-normalized over accessible destinations.
package dispersal

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for matrix construction and subsetting.
var (
	ErrInvalidArgument    = errors.New("dispersal: invalid argument")
	ErrResolutionMismatch = errors.New("dispersal: grid resolution mismatch")
)

// Kernel maps a sigma-scaled distance to an unnormalized dispersal density.
// The builder multiplies the kernel value by cell-area/sigma², so closed-form
// kernels carry only the scale-free part.
type Kernel func(x float64) float64

// Gaussian is the closed-form isotropic Gaussian kernel
// exp(−d²/σ²)/(2πσ²), expressed over the scaled distance x = d/σ with the
// 1/σ² factor applied by the builder.
func Gaussian(x float64) float64 {
	return math.Exp(-x*x) / (2 * math.Pi)
}

// KernelByName resolves a named kernel.
func KernelByName(name string) (Kernel, error) {
	switch name {
	case "gaussian":
		return Gaussian, nil
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", ErrInvalidArgument, name)
	}
}
