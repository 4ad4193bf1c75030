package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateDecaysWithMargin(t *testing.T) {
	e := New(5.0, 0.6, 0.3)

	tight := e.Estimate(0, false, nil)
	mid := e.Estimate(5, false, nil)
	wide := e.Estimate(50, false, nil)

	assert.Equal(t, 1.0, tight)
	assert.InDelta(t, 0.5, mid, 1e-9)
	assert.Greater(t, mid, wide)
}

func TestEstimateNegativeMarginTreatedAsZero(t *testing.T) {
	e := New(5.0, 0.6, 0.3)
	assert.Equal(t, 1.0, e.Estimate(-3, false, nil))
}

func TestEstimateLowDataDiscount(t *testing.T) {
	e := New(5.0, 0.6, 0.3)

	full := e.Estimate(5, false, nil)
	sparse := e.Estimate(5, true, nil)

	assert.InDelta(t, full*0.6, sparse, 1e-9)
}

func TestEstimateBlendsRecentAccuracy(t *testing.T) {
	e := New(5.0, 0.6, 0.3)

	acc := 0.9
	got := e.Estimate(5, false, &acc)
	want := 0.7*0.5 + 0.3*0.9
	assert.InDelta(t, want, got, 1e-9)

	// Out-of-range accuracy is clamped before blending.
	bad := 3.0
	got = e.Estimate(5, false, &bad)
	want = 0.7*0.5 + 0.3*1.0
	assert.InDelta(t, want, got, 1e-9)
}

func TestEstimateBounded(t *testing.T) {
	e := New(5.0, 0.6, 0.3)
	for _, margin := range []float64{0, 0.1, 1, 10, 1000} {
		for _, low := range []bool{false, true} {
			s := e.Estimate(margin, low, nil)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestNewDefaultsBadKnobs(t *testing.T) {
	e := New(-1, 0, 2)
	assert.InDelta(t, 0.5, e.Estimate(5, false, nil), 1e-9)
}
