package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(values), 1e-12)

	mean, std := MeanStdDev(values)
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)

	assert.Zero(t, Mean(nil))
	mean, std = MeanStdDev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.values))
		})
	}

	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "input must not be sorted in place")
}

// TestQuantile tests linear interpolation between closest ranks
func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{1, 5},
		{0.5, 3},
		{0.25, 2},
		{0.1, 1.4},
		{0.999, 4.996},
		{-1, 1},
		{2, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(values, tt.q), 1e-9, "q=%v", tt.q)
	}
	assert.Zero(t, Quantile(nil, 0.5))
}

func TestLinearRegression(t *testing.T) {
	t.Run("perfect line", func(t *testing.T) {
		reg := LinearRegression([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
		assert.InDelta(t, 2, reg.Slope, 1e-12)
		assert.InDelta(t, 1, reg.Intercept, 1e-12)
		assert.InDelta(t, 1, reg.R2, 1e-12)
	})

	t.Run("noisy", func(t *testing.T) {
		reg := LinearRegression(Index(4), []float64{1, 2, 2, 3})
		assert.InDelta(t, 0.6, reg.Slope, 1e-12)
		assert.True(t, reg.R2 > 0.8 && reg.R2 < 1)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Equal(t, Regression{}, LinearRegression([]float64{1}, []float64{1}))
		assert.Equal(t, Regression{}, LinearRegression([]float64{1, 2}, []float64{1}))
		assert.Equal(t, Regression{Intercept: 2}, LinearRegression([]float64{1, 1}, []float64{1, 3}))

		flat := LinearRegression(Index(3), []float64{5, 5, 5})
		assert.Zero(t, flat.Slope)
		assert.Zero(t, flat.R2)
		assert.False(t, math.IsNaN(flat.R2))
	})
}

func TestPctChange(t *testing.T) {
	assert.Equal(t, 50.0, PctChange(100, 150))
	assert.Equal(t, -25.0, PctChange(100, 75))
	assert.Zero(t, PctChange(0, 10))
}
