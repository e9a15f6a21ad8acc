package exporter

import (
	"strconv"
	"strings"
	"time"

	"aadhaarcli/pkg/contracts/domain"
)

// DateLayout is the date format of exported rows
const DateLayout = "2006-01-02"

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func joinFraudTypes(types []domain.FraudType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, "; ")
}
