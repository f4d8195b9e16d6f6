package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingT captures assertion failures instead of failing the test.
type recordingT struct {
	testing.TB
	failed bool
}

func (r *recordingT) Helper() {}

func (r *recordingT) Errorf(string, ...any) { r.failed = true }

func TestInRelTolerance(t *testing.T) {
	tests := []struct {
		name      string
		want, got float64
		relTol    float64
		pass      bool
	}{
		{name: "both zero", want: 0, got: 0, relTol: 0, pass: true},
		{name: "within tolerance", want: 100, got: 100.5, relTol: 0.01, pass: true},
		{name: "outside tolerance", want: 100, got: 102, relTol: 0.01, pass: false},
		{name: "zero want", want: 0, got: 1e-9, relTol: 0.5, pass: false},
		{name: "nan", want: 1, got: math.NaN(), relTol: 1, pass: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingT{TB: t}
			assert.Equal(t, tt.pass, InRelTolerance(rec, tt.want, tt.got, tt.relTol))
			assert.Equal(t, !tt.pass, rec.failed)
		})
	}
}
