package exporter

import (
	"strconv"

	"fluxcard/internal/thermal"
)

// formatFloat formats a value with the datacard's four decimals
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatQuantity formats a quantity, leaving the cell empty when it was not
// produced
func formatQuantity(q thermal.Quantities, name string) string {
	v, ok := q[name]
	if !ok {
		return ""
	}
	return formatFloat(v)
}
