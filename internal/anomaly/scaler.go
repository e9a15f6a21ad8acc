package anomaly

import (
	"aadhaarcli/internal/stats"
)

// Scaler standardizes feature columns to zero mean and unit variance
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes per-column mean and population standard deviation.
// Columns with zero variance get scale 1 so they stay centered rather than
// dividing by zero.
func FitScaler(rows [][]float64) *Scaler {
	if len(rows) == 0 {
		return &Scaler{}
	}

	cols := len(rows[0])
	s := &Scaler{
		Mean:  make([]float64, cols),
		Scale: make([]float64, cols),
	}

	column := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		mean, std := stats.MeanStdDev(column)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s
}

// Transform returns standardized copies of rows
func (s *Scaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out
}

// Standardize fits a scaler on rows and applies it in one pass
func Standardize(rows [][]float64) [][]float64 {
	return FitScaler(rows).Transform(rows)
}
