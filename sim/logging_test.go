package sim

import (
	"bytes"
	"strings"
	"testing"

	"github.com/efwall/genoscape/demography"
)

func TestGenerationClampWarningRedirected(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriter(&buf)
	defer SetLogWriter(nil)

	// Push the next state a hair below zero: with no germination, a survival
	// rate of -1e-10 makes death exceed the standing count by 1e-10, inside
	// the underflow tolerance.
	pop, m := singleCellSetup(t)
	pop.SetCount(0, "A", 1)
	m.Germination = demography.Constant(0)
	m.Survival = demography.Constant(-1e-10)

	next, bd, err := Generation(pop, m, nil, true, nil)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if bd.Clamped != 1 {
		t.Errorf("Clamped = %d, want 1", bd.Clamped)
	}
	if got := next.At(0, 0); got != 0 {
		t.Errorf("next = %v, want clamped 0", got)
	}
	if !strings.Contains(buf.String(), "clamped 1 underflowed") {
		t.Errorf("redirected log missing clamp warning, got %q", buf.String())
	}
}
