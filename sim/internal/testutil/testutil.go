// Package testutil holds assertion helpers shared by the sim/ test packages.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// InRelTolerance asserts |want-got| <= relTol*max(|want|,|got|).
// Unlike assert.InEpsilon it accepts want == 0; NaN on either side fails.
func InRelTolerance(t testing.TB, want, got, relTol float64, msgAndArgs ...any) bool {
	t.Helper()
	scale := math.Max(math.Abs(want), math.Abs(got))
	if scale == 0 {
		return true
	}
	return assert.LessOrEqual(t, math.Abs(want-got), relTol*scale, msgAndArgs...)
}
